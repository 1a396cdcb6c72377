// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-lpc/zmod/internal/mmap"
)

// Stream is a read-only view on a raw stream.
// A Stream can be decoded any number of times, possibly concurrently.
type Stream struct {
	r    io.ReaderAt
	size int64
	c    io.Closer
}

// NewStream returns a stream reading size bytes from r.
func NewStream(r io.ReaderAt, size int64) *Stream {
	return &Stream{r: r, size: size}
}

// Bytes returns a stream backed by an in-memory buffer.
func Bytes(p []byte) *Stream {
	return NewStream(bytes.NewReader(p), int64(len(p)))
}

// Open returns a memory-mapped stream of the named raw file.
func Open(fname string) (*Stream, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("adc: could not open raw file: %w", err)
	}
	return &Stream{r: h, size: int64(h.Len()), c: h}, nil
}

// Close releases the resources held by the stream.
func (s *Stream) Close() error {
	if s.c == nil {
		return nil
	}
	c := s.c
	s.c = nil
	return c.Close()
}

// Size returns the size in bytes of the stream.
func (s *Stream) Size() int64 { return s.size }

// Len returns the number of complete frames in the stream.
func (s *Stream) Len() int { return int(s.size / FrameSize) }

// Validate checks the stream is made of complete frames.
func (s *Stream) Validate() error {
	if r := s.size % FrameSize; r != 0 {
		return &MalformedStreamError{Offset: s.size - r, Remainder: int(r)}
	}
	return nil
}

// Decoder returns a new decoder positioned at the beginning of the stream.
func (s *Stream) Decoder(p Params) *Decoder {
	return NewDecoder(io.NewSectionReader(s.r, 0, s.size), p)
}

// ReadAt implements io.ReaderAt on the raw bytes of the stream.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	return io.NewSectionReader(s.r, 0, s.size).ReadAt(p, off)
}

// At decodes the i-th sample of the stream.
func (s *Stream) At(i int, p Params) (Sample, error) {
	if i < 0 || i >= s.Len() {
		return Sample{}, fmt.Errorf("adc: sample index %d out of range [0, %d)", i, s.Len())
	}
	var frame [FrameSize]byte
	_, err := s.r.ReadAt(frame[:], int64(i)*FrameSize)
	if err != nil {
		return Sample{}, fmt.Errorf("adc: could not read frame %d: %w", i, err)
	}
	return p.Decode(frame[:]), nil
}

// ReadAll decodes all the samples of the stream.
// If the stream ends with an incomplete frame, ReadAll returns the
// samples of all complete frames and a *MalformedStreamError.
func (s *Stream) ReadAll(p Params) ([]Sample, error) {
	var (
		dec  = s.Decoder(p)
		smp  Sample
		smps = make([]Sample, 0, s.Len())
	)
	for {
		err := dec.Decode(&smp)
		if err != nil {
			if err == io.EOF {
				return smps, nil
			}
			return smps, err
		}
		smps = append(smps, smp)
	}
}
