// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"errors"
	"fmt"
	"io"
)

// Decoder decodes samples from a raw stream.
type Decoder struct {
	r   io.Reader
	p   Params
	buf [FrameSize]byte
	off int64
	err error
}

// NewDecoder returns a decoder reading frames from r.
func NewDecoder(r io.Reader, p Params) *Decoder {
	return &Decoder{r: r, p: p}
}

// Decode decodes the next sample.
// Decode returns io.EOF at the end of a well-formed stream and a
// *MalformedStreamError if the stream ends with an incomplete frame.
func (dec *Decoder) Decode(s *Sample) error {
	if dec.err != nil {
		return dec.err
	}

	n, err := io.ReadFull(dec.r, dec.buf[:])
	switch {
	case err == nil:
		// ok.
	case errors.Is(err, io.ErrUnexpectedEOF):
		dec.err = &MalformedStreamError{Offset: dec.off, Remainder: n}
		return dec.err
	case errors.Is(err, io.EOF):
		dec.err = io.EOF
		return dec.err
	default:
		dec.err = fmt.Errorf("adc: could not read frame at offset %d: %w", dec.off, err)
		return dec.err
	}

	*s = dec.p.Decode(dec.buf[:])
	dec.off += FrameSize
	return nil
}

// Offset returns the number of bytes consumed so far.
func (dec *Decoder) Offset() int64 {
	return dec.off
}
