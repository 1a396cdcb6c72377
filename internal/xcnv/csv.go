// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-lpc/zmod/adc"
)

// WriteCSV decodes all the samples from dec and writes them to w, one
// "ch1, ch2" line per sample.
// WriteCSV returns the number of samples written.
func WriteCSV(w io.Writer, dec *adc.Decoder) (int64, error) {
	var (
		bw  = bufio.NewWriter(w)
		smp adc.Sample
		n   int64
		buf = make([]byte, 0, 64)
	)
	for {
		err := dec.Decode(&smp)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			_ = bw.Flush()
			return n, fmt.Errorf("xcnv: could not decode sample %d: %w", n, err)
		}

		buf = appendFloat(buf[:0], smp.Ch1)
		buf = append(buf, ", "...)
		buf = appendFloat(buf, smp.Ch2)
		buf = append(buf, '\n')

		_, err = bw.Write(buf)
		if err != nil {
			return n, fmt.Errorf("xcnv: could not write sample %d: %w", n, err)
		}
		n++
	}

	err := bw.Flush()
	if err != nil {
		return n, fmt.Errorf("xcnv: could not flush CSV data: %w", err)
	}

	return n, nil
}

// FormatFloat formats v as the shortest decimal that round-trips,
// always with a fractional part or an exponent ("1.0", "0.25", "1e-05").
func FormatFloat(v float64) string {
	return string(appendFloat(nil, v))
}

func appendFloat(dst []byte, v float64) []byte {
	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		// NaN, Inf or large/small magnitudes.
		return append(dst, sci...)
	}

	beg := len(dst)
	dst = strconv.AppendFloat(dst, v, 'f', -1, 64)
	for _, c := range dst[beg:] {
		if c == '.' {
			return dst
		}
	}
	return append(dst, ".0"...)
}
