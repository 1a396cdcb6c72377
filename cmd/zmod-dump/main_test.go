// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
)

func TestDump(t *testing.T) {
	tmpdir, err := os.MkdirTemp("", "zmod-dump-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpdir)

	fname := filepath.Join(tmpdir, "output.raw")
	err = os.WriteFile(fname, bytes.Repeat([]byte{0x00, 0x00, 0x00, 0x40}, 4), 0644)
	if err != nil {
		t.Fatal(err)
	}

	xmain(io.Discard, []string{"-r", "14", "-g", "LOW,HIGH", "-hist", filepath.Join(tmpdir, "hist.png"), fname})

	fi, err := os.Stat(filepath.Join(tmpdir, "hist.png"))
	if err != nil {
		t.Fatalf("could not stat histograms file: %+v", err)
	}
	if fi.Size() == 0 {
		t.Fatalf("empty histograms file")
	}
}

func TestProcess(t *testing.T) {
	tmp, err := os.MkdirTemp("", "zmod-dump-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	low, err := adc.NewParams(14, [2]acq.Gain{acq.Low, acq.Low})
	if err != nil {
		t.Fatalf("could not create params: %+v", err)
	}

	for _, tc := range []struct {
		name string
		raw  []byte
		nmax int
		want string
		err  error
	}{
		{
			name: "empty",
			nmax: 10,
			want: `=== %[1]s ===
Resolution:         14
Ranges:     [25 25]
Size:                0
Samples:             0
Channel 2: entries=0
Channel 1: entries=0
`,
		},
		{
			name: "constant",
			raw:  bytes.Repeat([]byte{0x00, 0x00, 0x00, 0x40}, 4),
			nmax: 2,
			want: `=== %[1]s ===
Resolution:         14
Ranges:     [25 25]
Size:               16
Samples:             4
Channel 2: entries=4 mean=0.000 stddev=0.000 min=0.000 max=0.000
Channel 1: entries=4 mean=12.500 stddev=0.000 min=12.500 max=12.500
  #0000000: 0.0, 12.5
  #0000001: 0.0, 12.5
[...]
`,
		},
		{
			name: "all",
			raw: []byte{
				0x00, 0x80, 0xfc, 0x7f,
				0x00, 0x80, 0xfc, 0x7f,
			},
			nmax: -1,
			want: `=== %[1]s ===
Resolution:         14
Ranges:     [25 25]
Size:                8
Samples:             2
Channel 2: entries=2 mean=-25.000 stddev=0.000 min=-25.000 max=-25.000
Channel 1: entries=2 mean=24.997 stddev=0.000 min=24.997 max=24.997
  #0000000: -25.0, 24.9969482421875
  #0000001: -25.0, 24.9969482421875
`,
		},
		{
			name: "malformed",
			raw:  []byte{0x00, 0x00, 0x00, 0x00, 0x01},
			nmax: 10,
			err:  fmt.Errorf("could not decode sample 1: adc: decoding failed: malformed stream (1 trailing bytes at offset 4)"),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name+".raw")
			err := os.WriteFile(fname, tc.raw, 0644)
			if err != nil {
				t.Fatalf("could not create raw file: %+v", err)
			}

			out := new(bytes.Buffer)
			err = process(out, fname, low, tc.nmax, "")
			switch {
			case err == nil && tc.err == nil:
				// ok
			case err != nil && tc.err != nil:
				if got, want := err.Error(), tc.err.Error(); got != want {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
				}
				return
			default:
				t.Fatalf("invalid error:\ngot= %v\nwant=%v", err, tc.err)
			}

			if got, want := out.String(), fmt.Sprintf(tc.want, fname); got != want {
				t.Fatalf("invalid dump:\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}
