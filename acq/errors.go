// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import "fmt"

// ConnectError reports a failure to reach the instrument.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("acq: could not connect to %q: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError reports a read or write failure on the socket or on the sink,
// once the connection is established.
type IOError struct {
	Phase State // Configuring or Streaming
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("acq: %v failed: %v", e.Phase, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
