// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"fmt"
	"io"
)

// Encoder writes samples as raw frames to an output stream.
type Encoder struct {
	w   io.Writer
	p   Params
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer, p Params) *Encoder {
	return &Encoder{w: w, p: p}
}

// Encode writes the frame of sample s to the stream.
func (enc *Encoder) Encode(s Sample) error {
	if enc.err != nil {
		return enc.err
	}

	frame := enc.p.Encode(s)
	_, enc.err = enc.w.Write(frame[:])
	if enc.err != nil {
		enc.err = fmt.Errorf("adc: could not write frame: %w", enc.err)
	}
	return enc.err
}
