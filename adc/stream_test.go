// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adc

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-lpc/zmod/acq"
)

func genSamples(t *testing.T, p Params, n int) ([]byte, []Sample) {
	t.Helper()

	var (
		buf  = new(bytes.Buffer)
		enc  = NewEncoder(buf, p)
		smps = make([]Sample, n)
	)
	for i := range smps {
		x := 2 * math.Pi * float64(i) / 64
		smps[i] = Sample{
			Ch1: 0.8 * p.Range[0] * math.Sin(x),
			Ch2: 0.5 * p.Range[1] * math.Cos(x),
		}
		err := enc.Encode(smps[i])
		if err != nil {
			t.Fatalf("could not encode sample %d: %+v", i, err)
		}
	}

	raw := buf.Bytes()
	dec := NewDecoder(bytes.NewReader(raw), p)
	for i := range smps {
		err := dec.Decode(&smps[i])
		if err != nil {
			t.Fatalf("could not decode sample %d: %+v", i, err)
		}
	}
	return raw, smps
}

func TestDecoder(t *testing.T) {
	p, err := NewParams(14, [2]acq.Gain{acq.Low, acq.High})
	if err != nil {
		t.Fatalf("could not create params: %+v", err)
	}
	raw, want := genSamples(t, p, 100)

	for _, tc := range []struct {
		name  string
		extra int
	}{
		{"complete", 0},
		{"trailing-1", 1},
		{"trailing-2", 2},
		{"trailing-3", 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := append(append([]byte(nil), raw...), make([]byte, tc.extra)...)
			dec := NewDecoder(bytes.NewReader(data), p)

			var (
				got []Sample
				smp Sample
			)
			for {
				err = dec.Decode(&smp)
				if err != nil {
					break
				}
				got = append(got, smp)
			}

			if !reflect.DeepEqual(got, want) {
				t.Fatalf("invalid samples")
			}

			switch tc.extra {
			case 0:
				if err != io.EOF {
					t.Fatalf("invalid end of stream: %+v", err)
				}
			default:
				var merr *MalformedStreamError
				if !errors.As(err, &merr) {
					t.Fatalf("invalid error type: %T (%+v)", err, err)
				}
				if got, want := merr.Remainder, tc.extra; got != want {
					t.Fatalf("invalid remainder: got=%d, want=%d", got, want)
				}
				if got, want := merr.Offset, int64(len(raw)); got != want {
					t.Fatalf("invalid offset: got=%d, want=%d", got, want)
				}
				if !errors.Is(err, io.ErrUnexpectedEOF) {
					t.Fatalf("malformed stream error should wrap io.ErrUnexpectedEOF")
				}
			}

			// errors are sticky.
			if err2 := dec.Decode(&smp); err2 != err {
				t.Fatalf("invalid sticky error: got=%v, want=%v", err2, err)
			}
		})
	}
}

func TestDecoderEmpty(t *testing.T) {
	var smp Sample
	err := NewDecoder(bytes.NewReader(nil), Params{Resolution: 14}).Decode(&smp)
	if err != io.EOF {
		t.Fatalf("invalid error: %+v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestDecoderReadError(t *testing.T) {
	var smp Sample
	err := NewDecoder(failingReader{}, Params{Resolution: 14}).Decode(&smp)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := err.Error(), "adc: could not read frame at offset 0: io: read/write on closed pipe"; got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}
}

func TestStream(t *testing.T) {
	p, err := NewParams(12, [2]acq.Gain{acq.Low, acq.Low})
	if err != nil {
		t.Fatalf("could not create params: %+v", err)
	}
	raw, want := genSamples(t, p, 1024)

	tmp, err := os.MkdirTemp("", "zmod-adc-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "output.raw")
	err = os.WriteFile(fname, raw, 0644)
	if err != nil {
		t.Fatalf("could not write raw file: %+v", err)
	}

	mapped, err := Open(fname)
	if err != nil {
		t.Fatalf("could not open raw file: %+v", err)
	}
	defer mapped.Close()

	for _, tc := range []struct {
		name string
		s    *Stream
	}{
		{"bytes", Bytes(raw)},
		{"reader-at", NewStream(bytes.NewReader(raw), int64(len(raw)))},
		{"mmap", mapped},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got, want := tc.s.Len(), len(want); got != want {
				t.Fatalf("invalid length: got=%d, want=%d", got, want)
			}
			if err := tc.s.Validate(); err != nil {
				t.Fatalf("invalid stream: %+v", err)
			}

			// decoding is deterministic and restartable.
			for i := 0; i < 2; i++ {
				got, err := tc.s.ReadAll(p)
				if err != nil {
					t.Fatalf("could not read samples: %+v", err)
				}
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("invalid samples (pass #%d)", i)
				}
			}

			rnd := rand.New(rand.NewSource(1234))
			for i := 0; i < 100; i++ {
				j := rnd.Intn(len(want))
				got, err := tc.s.At(j, p)
				if err != nil {
					t.Fatalf("could not read sample %d: %+v", j, err)
				}
				if got != want[j] {
					t.Fatalf("invalid sample %d: got=%+v, want=%+v", j, got, want[j])
				}
			}

			_, err := tc.s.At(len(want), p)
			if err == nil {
				t.Fatalf("expected an out-of-range error")
			}
		})
	}

	err = mapped.Close()
	if err != nil {
		t.Fatalf("could not close mapped stream: %+v", err)
	}
}

func TestStreamLength(t *testing.T) {
	for k := 0; k < 4; k++ {
		for r := 0; r < FrameSize; r++ {
			s := Bytes(make([]byte, FrameSize*k+r))
			if got, want := s.Len(), k; got != want {
				t.Fatalf("invalid length for k=%d, r=%d: got=%d, want=%d", k, r, got, want)
			}

			err := s.Validate()
			if r == 0 {
				if err != nil {
					t.Fatalf("invalid stream for k=%d: %+v", k, err)
				}
			} else {
				var merr *MalformedStreamError
				if !errors.As(err, &merr) {
					t.Fatalf("invalid error for k=%d, r=%d: %+v", k, r, err)
				}
				if merr.Remainder != r || merr.Offset != int64(FrameSize*k) {
					t.Fatalf("invalid error for k=%d, r=%d: %+v", k, r, merr)
				}
			}

			smps, err := s.ReadAll(Params{Resolution: 14, Range: [2]float64{25, 25}})
			if len(smps) != k {
				t.Fatalf("invalid number of samples for k=%d, r=%d: %d", k, r, len(smps))
			}
			for _, smp := range smps {
				if smp != (Sample{}) {
					t.Fatalf("invalid zero sample: %+v", smp)
				}
			}
			if (err != nil) != (r != 0) {
				t.Fatalf("invalid error for k=%d, r=%d: %+v", k, r, err)
			}
		}
	}
}

func TestMalformedStreamError(t *testing.T) {
	err := &MalformedStreamError{Offset: 40, Remainder: 3}
	const want = "adc: decoding failed: malformed stream (3 trailing bytes at offset 40)"
	if got := err.Error(); got != want {
		t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
	}
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return 0, io.ErrShortWrite }

func TestEncoderError(t *testing.T) {
	enc := NewEncoder(shortWriter{}, Params{Resolution: 14, Range: [2]float64{1, 1}})
	err := enc.Encode(Sample{})
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("invalid error: %+v", err)
	}
	if err2 := enc.Encode(Sample{}); err2 != err {
		t.Fatalf("invalid sticky error: %+v", err2)
	}
}
