// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"fmt"
	"io"
)

// MalformedStreamError reports a raw stream whose length is not a multiple
// of FrameSize.
type MalformedStreamError struct {
	Offset    int64 // offset of the incomplete frame
	Remainder int   // number of trailing bytes (1 to 3)
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf(
		"adc: decoding failed: malformed stream (%d trailing bytes at offset %d)",
		e.Remainder, e.Offset,
	)
}

func (e *MalformedStreamError) Unwrap() error { return io.ErrUnexpectedEOF }
