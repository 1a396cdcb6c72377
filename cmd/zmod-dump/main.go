// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// zmod-dump decodes and displays raw Zmod data files.
//
// Usage: zmod-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> zmod-dump -r 14 -g LOW,HIGH -n 1 ./output.raw
//	=== ./output.raw ===
//	Resolution:         14
//	Ranges:     [1 25]
//	Size:            65536
//	Samples:         16384
//	Channel 2: entries=16384 mean=0.000 stddev=0.566 min=-0.800 max=0.800
//	Channel 1: entries=16384 mean=0.000 stddev=8.839 min=-12.500 max=12.499
//	  #0000000: 0.0, 12.4969482421875
//	[...]
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"github.com/go-lpc/zmod/internal/xcnv"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

const usage = `zmod-dump decodes and displays raw Zmod data files.

Usage: zmod-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> zmod-dump -r 14 -g LOW,HIGH -n 1 ./output.raw
 === ./output.raw ===
 Resolution:         14
 Ranges:     [1 25]
 Size:            65536
 Samples:         16384
 Channel 2: entries=16384 mean=0.000 stddev=0.566 min=-0.800 max=0.800
 Channel 1: entries=16384 mean=0.000 stddev=8.839 min=-12.500 max=12.499
   #0000000: 0.0, 12.4969482421875
 [...]

options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("zmod-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("zmod-dump", flag.ExitOnError)

		res   = fset.Int("r", 14, "resolution of the Zmod (10, 12 or 14)")
		gains = fset.String("g", "LOW,LOW", "HIGH/LOW gains of the Zmod channels 1 and 2")
		nmax  = fset.Int("n", 10, "number of samples to display (-1: all)")
		hist  = fset.String("hist", "", "file to store the histograms of both channels")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input raw file")
	}

	gs, err := acq.ParseGains(*gains)
	if err != nil {
		log.Fatalf("could not parse gains: %+v", err)
	}

	params, err := adc.NewParams(*res, gs)
	if err != nil {
		log.Fatalf("could not create decoding parameters: %+v", err)
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, params, *nmax, *hist)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

type stats struct {
	h        *hbook.H1D
	min, max float64
}

func newStats(full float64) *stats {
	return &stats{
		h:   hbook.NewH1D(100, -full, +full),
		min: math.Inf(+1),
		max: math.Inf(-1),
	}
}

func (st *stats) fill(v float64) {
	st.h.Fill(v, 1)
	st.min = math.Min(st.min, v)
	st.max = math.Max(st.max, v)
}

func (st *stats) String() string {
	if st.h.Entries() == 0 {
		return "entries=0"
	}
	return fmt.Sprintf(
		"entries=%d mean=%.3f stddev=%.3f min=%.3f max=%.3f",
		st.h.Entries(), st.h.XMean(), st.h.XStdDev(), st.min, st.max,
	)
}

func process(w io.Writer, fname string, params adc.Params, nmax int, hist string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	s, err := adc.Open(fname)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		dec = s.Decoder(params)
		smp adc.Sample
		chs = [2]*stats{newStats(params.FullRange(0)), newStats(params.FullRange(1))}
		rows []string
	)

loop:
	for i := 0; ; i++ {
		err := dec.Decode(&smp)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break loop
			}
			return fmt.Errorf("could not decode sample %d: %w", i, err)
		}
		chs[0].fill(smp.Ch1)
		chs[1].fill(smp.Ch2)

		if nmax < 0 || i < nmax {
			rows = append(rows, fmt.Sprintf(
				"  #%07d: %s, %s\n", i,
				xcnv.FormatFloat(smp.Ch1), xcnv.FormatFloat(smp.Ch2),
			))
		}
	}

	fmt.Fprintf(wbuf, "=== %s ===\n", fname)
	fmt.Fprintf(wbuf, "Resolution: % 10d\n", params.Resolution)
	fmt.Fprintf(wbuf, "Ranges:     %v\n", params.Range)
	fmt.Fprintf(wbuf, "Size:       % 10d\n", s.Size())
	fmt.Fprintf(wbuf, "Samples:    % 10d\n", s.Len())
	fmt.Fprintf(wbuf, "Channel 2: %v\n", chs[0])
	fmt.Fprintf(wbuf, "Channel 1: %v\n", chs[1])
	for _, row := range rows {
		fmt.Fprint(wbuf, row)
	}
	if nmax >= 0 && s.Len() > nmax {
		fmt.Fprintf(wbuf, "[...]\n")
	}

	if hist != "" {
		err = plotHists(hist, chs)
		if err != nil {
			return fmt.Errorf("could not plot histograms: %w", err)
		}
	}

	return nil
}

func plotHists(fname string, chs [2]*stats) error {
	p := hplot.New()
	p.Title.Text = "Zmod Samples"
	p.X.Label.Text = "value"
	p.Y.Label.Text = "entries"

	for i, v := range []struct {
		name string
		col  color.Color
	}{
		{"Channel 2", color.RGBA{R: 255, A: 255}},
		{"Channel 1", color.RGBA{B: 255, A: 255}},
	} {
		h := hplot.NewH1D(chs[i].h)
		h.LineStyle.Color = v.col
		p.Add(h)
		p.Legend.Add(v.name, h)
	}
	p.Add(hplot.NewGrid())

	return p.Save(20*vg.Centimeter, 10*vg.Centimeter, fname)
}
