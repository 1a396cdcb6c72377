// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zmod2lcio converts a raw Zmod data file to an LCIO one.
package main // import "github.com/go-lpc/zmod/cmd/zmod2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"github.com/go-lpc/zmod/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "zmod2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		run   = flag.Int("run", -1, "run number (default: inferred from zmod_<run>.raw file names)")

		res      = flag.Int("r", 14, "resolution of the Zmod (10, 12 or 14)")
		gains    = flag.String("g", "LOW,LOW", "HIGH/LOW gains of the Zmod channels 1 and 2")
		cpls     = flag.String("c", "AC,AC", "AC/DC couplings of the Zmod channels 1 and 2")
		transfer = flag.Uint("t", 0, "number of requested samples")
		dec      = flag.Uint("d", 10, "decimation factor")
		packet   = flag.Uint("p", 16384, "packet length")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: zmod2lcio [OPTIONS] file.raw

ex:
 $> zmod2lcio -o out.lcio -lvl=9 -r 14 -g HIGH,LOW ./zmod_042.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		msg.Fatalf("missing input raw file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	info := xcnv.RunInfo{
		Run:        int32(*run),
		Resolution: *res,
		Config: acq.Config{
			TransferSize: uint32(*transfer),
			Decimation:   uint32(*dec),
			PacketLength: uint32(*packet),
		},
	}

	var err error
	info.Config.Gain, err = acq.ParseGains(*gains)
	if err != nil {
		msg.Fatalf("could not parse gains: %+v", err)
	}
	info.Config.Coupling, err = acq.ParseCouplings(*cpls)
	if err != nil {
		msg.Fatalf("could not parse couplings: %+v", err)
	}

	if *run < 0 {
		info.Run, err = runNbrFrom(flag.Arg(0))
		if err != nil {
			msg.Fatalf("could not infer run from %q: %+v", flag.Arg(0), err)
		}
	}

	err = process(*oname, *compr, flag.Arg(0), info)
	if err != nil {
		msg.Fatalf("could not convert raw file: %+v", err)
	}
}

func process(oname string, lvl int, fname string, info xcnv.RunInfo) error {
	s, err := adc.Open(fname)
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	err = xcnv.Raw2LCIO(w, s, info, msg)
	if err != nil {
		return fmt.Errorf("could not convert raw data to LCIO: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}

func runNbrFrom(fname string) (int32, error) {
	var (
		name = filepath.Base(fname)
		run  int32
	)
	_, err := fmt.Sscanf(name, "zmod_%d.raw", &run)
	return run, err
}
