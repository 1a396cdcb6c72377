// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package adc decodes raw Zmod ADC streams into calibrated samples.
//
// A raw stream is a flat sequence of 4-byte frames. Each frame holds two
// little-endian 16-bit words, one per channel, with the ADC code stored in
// the top Resolution bits of the word.
package adc // import "github.com/go-lpc/zmod/adc"

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-lpc/zmod/acq"
)

const (
	// FrameSize is the size in bytes of one raw frame.
	FrameSize = 4

	// FullScale is the divisor applied to sign-extended ADC codes,
	// whatever the resolution.
	FullScale = 1 << 13

	mask = 0x3fff
)

// Sample is a pair of calibrated channel values decoded from one frame.
//
// Ch1 is decoded from the first word of the frame and Ch2 from the second.
type Sample struct {
	Ch1 float64
	Ch2 float64
}

// Params holds the decoding parameters of a raw stream.
type Params struct {
	Resolution int        // ADC resolution in bits: 10, 12 or 14.
	Range      [2]float64 // calibration range of the first and second word.
}

// NewParams returns the decoding parameters for the given resolution and
// acquisition gains.
//
// The first word of a frame is scaled with the range of gain[1] and the
// second word with the range of gain[0].
func NewParams(res int, gain [2]acq.Gain) (Params, error) {
	switch res {
	case 10, 12, 14:
	default:
		return Params{}, fmt.Errorf("adc: invalid resolution %d (want 10, 12 or 14)", res)
	}

	var (
		p   = Params{Resolution: res}
		err error
	)
	p.Range[0], err = rangeOf(gain[1])
	if err != nil {
		return Params{}, err
	}
	p.Range[1], err = rangeOf(gain[0])
	if err != nil {
		return Params{}, err
	}

	return p, nil
}

func rangeOf(g acq.Gain) (float64, error) {
	switch g {
	case acq.High:
		return 1, nil
	case acq.Low:
		return 25, nil
	default:
		return 0, fmt.Errorf("adc: invalid gain %v", g)
	}
}

// SignExtend interprets the n low bits of v as a two's-complement integer.
func SignExtend(v uint32, n uint) int32 {
	s := uint32(1) << (n - 1)
	return int32(v&(s-1)) - int32(v&s)
}

// Decode decodes one frame.
// Decode panics if frame is shorter than FrameSize.
func (p Params) Decode(frame []byte) Sample {
	_ = frame[FrameSize-1]
	return Sample{
		Ch1: p.value(binary.LittleEndian.Uint16(frame[0:2]), p.Range[0]),
		Ch2: p.value(binary.LittleEndian.Uint16(frame[2:4]), p.Range[1]),
	}
}

func (p Params) value(word uint16, rng float64) float64 {
	var (
		res = uint(p.Resolution)
		v   = (uint32(word) >> (16 - res)) & mask
	)
	return float64(SignExtend(v, res)) * rng / FullScale
}

// FullRange returns the largest magnitude representable by the i-th word
// of a frame.
func (p Params) FullRange(i int) float64 {
	return p.Range[i] * float64(int(1)<<(p.Resolution-1)) / FullScale
}

// Code returns the 16-bit word encoding the value v for the i-th word of
// a frame.
// Values outside of the representable range are clamped.
func (p Params) Code(i int, v float64) uint16 {
	var (
		res  = uint(p.Resolution)
		smax = float64(int64(1)<<(res-1) - 1)
		smin = -float64(int64(1) << (res - 1))
		code = math.Round(v * FullScale / p.Range[i])
	)
	switch {
	case math.IsNaN(code):
		code = 0
	case code > smax:
		code = smax
	case code < smin:
		code = smin
	}
	bits := uint16(uint64(int64(code)) & (1<<res - 1))
	return bits << (16 - res)
}

// Encode encodes a sample into one frame.
func (p Params) Encode(s Sample) [FrameSize]byte {
	var frame [FrameSize]byte
	binary.LittleEndian.PutUint16(frame[0:2], p.Code(0, s.Ch1))
	binary.LittleEndian.PutUint16(frame[2:4], p.Code(1, s.Ch2))
	return frame
}
