// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio2zmod converts a LCIO file into a Zmod raw data file.
package main // import "github.com/go-lpc/zmod/cmd/lcio2zmod"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/zmod/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "lcio2zmod: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.raw", "path to output Zmod raw file")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: lcio2zmod [OPTIONS] file.lcio

ex:
 $> lcio2zmod -o out.raw ./input.lcio

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input LCIO file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output Zmod file name")
	}

	n, err := numEvents(flag.Arg(0))
	if err != nil {
		msg.Fatalf("could not assess number of events: %+v", err)
	}
	msg.Printf("input:  %s", flag.Arg(0))
	msg.Printf("events: %d", n)

	info, err := process(*oname, flag.Arg(0), int(n/10))
	if err != nil {
		msg.Fatalf("could not convert LCIO file: %+v", err)
	}
	msg.Printf("run:    %d", info.Run)
	msg.Printf("config: %v (resolution=%d)", info.Config, info.Resolution)
}

func numEvents(fname string) (int64, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return 0, fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer r.Close()

	var n int64
	for r.Next() {
		n++
	}

	err = r.Err()
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("could not assess number of events in %q: %w", fname, err)
	}

	return n, nil
}

func process(oname, fname string, freq int) (xcnv.RunInfo, error) {
	r, err := lcio.Open(fname)
	if err != nil {
		return xcnv.RunInfo{}, fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	f, err := os.Create(oname)
	if err != nil {
		return xcnv.RunInfo{}, fmt.Errorf("could not create output Zmod file: %w", err)
	}
	defer f.Close()

	info, err := xcnv.LCIO2Raw(f, r, freq, msg)
	if err != nil {
		return info, fmt.Errorf("could not convert LCIO file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return info, fmt.Errorf("could not close output Zmod file: %w", err)
	}
	return info, nil
}
