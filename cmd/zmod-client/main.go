// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zmod-client logs samples acquired by a Zmod scope.
//
// zmod-client sends an acquisition request to the instrument, stores the
// raw stream into a file and optionally formats it into a CSV file and
// plots it.
package main // import "github.com/go-lpc/zmod/cmd/zmod-client"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"github.com/go-lpc/zmod/conddb"
	"github.com/go-lpc/zmod/internal/xcnv"
	"golang.org/x/sync/errgroup"
)

const usage = `Usage: zmod-client [OPTIONS] -ip <address> -t <transfer size> -r <resolution>

ex:
 $> zmod-client -ip 192.168.1.10 -t 100000 -r 14 -g HIGH,LOW -f -P
 $> zmod-client -ip 192.168.1.10 -db zmod -preset scope-hg -f

options:
`

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	log.SetPrefix("zmod-client: ")
	log.SetFlags(0)

	opt, err := parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	msg := log.New(os.Stdout, "zmod-client: ", 0)

	ctx := context.Background()
	if opt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opt.timeout)
		defer cancel()
	}

	err = process(ctx, msg, &opt)
	if opt.alert {
		aerr := alertMail(opt, opt.received, err)
		if aerr != nil {
			msg.Printf("%+v", aerr)
		}
	}
	if err != nil {
		log.Fatalf("could not run acquisition: %+v", err)
	}
}

type options struct {
	addr string
	cfg  acq.Config
	res  int

	raw  string // raw output file
	csv  string // formatted output file
	plot string // plot output file

	format  bool
	display bool
	alert   bool // send a mail report once the acquisition is over

	received int64

	timeout time.Duration
}

func parse(args []string) (options, error) {
	var (
		opt  options
		fset = flag.NewFlagSet("zmod-client", flag.ContinueOnError)

		transfer = fset.Uint("t", 0, "number of samples to be transferred from the Zmod (rounded up to a multiple of the packet length)")
		ip       = fset.String("ip", "", "IP address of the board containing the Zmod")
		res      = fset.Int("r", 0, "resolution of the Zmod (10, 12 or 14)")
		gains    = fset.String("g", "LOW,LOW", "HIGH/LOW gains of the Zmod channels 1 and 2")
		cpls     = fset.String("c", "AC,AC", "AC/DC couplings of the Zmod channels 1 and 2")
		port     = fset.Int("port", acq.DefaultPort, "port for the connection")
		dec      = fset.Uint("d", 10, "decimation factor")
		packet   = fset.Uint("p", 16384, "packet length")

		db     = fset.String("db", "", "name of the condition DB holding acquisition presets")
		preset = fset.String("preset", "", "name of the acquisition preset (default: last preset)")

		timeout = fset.Duration("timeout", 0, "timeout of the whole acquisition (0: no timeout)")
	)

	fset.StringVar(&opt.raw, "raw", "output.raw", "file to store raw data")
	fset.StringVar(&opt.csv, "csv", "output.csv", "file to store formatted data, if -f is provided")
	fset.StringVar(&opt.plot, "plot", "output.png", "file to store the plot, if -P is provided")
	fset.BoolVar(&opt.format, "f", false, "format data into the CSV file specified by -csv")
	fset.BoolVar(&opt.display, "P", false, "plot transferred data into the file specified by -plot")
	fset.BoolVar(&opt.alert, "mail", false, "send a mail report at the end of the acquisition (MAIL_XXX environment variables)")

	fset.Usage = func() {
		fmt.Fprint(fset.Output(), usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return opt, err
	}

	set := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *db != "" {
		p, err := loadPreset(*db, *preset)
		if err != nil {
			return opt, err
		}
		opt.cfg = p.Config
		opt.res = p.Resolution
	} else {
		opt.cfg = acq.Config{
			Decimation:   uint32(*dec),
			PacketLength: uint32(*packet),
		}
		for _, name := range []string{"t", "r"} {
			if !set[name] {
				return opt, fmt.Errorf("missing required -%s flag", name)
			}
		}
	}

	for name := range set {
		switch name {
		case "t":
			opt.cfg.TransferSize = uint32(*transfer)
		case "r":
			opt.res = *res
		case "d":
			opt.cfg.Decimation = uint32(*dec)
		case "p":
			opt.cfg.PacketLength = uint32(*packet)
		}
	}

	if *db == "" || set["g"] {
		opt.cfg.Gain, err = acq.ParseGains(*gains)
		if err != nil {
			return opt, err
		}
	}
	if *db == "" || set["c"] {
		opt.cfg.Coupling, err = acq.ParseCouplings(*cpls)
		if err != nil {
			return opt, err
		}
	}

	switch {
	case *ip == "":
		return opt, fmt.Errorf("missing required -ip flag")
	case *transfer > 0xffffffff:
		return opt, fmt.Errorf("invalid transfer size %d", *transfer)
	}

	switch opt.res {
	case 10, 12, 14:
	default:
		return opt, fmt.Errorf("invalid resolution %d (want 10, 12 or 14)", opt.res)
	}

	if *dec > acq.MaxDecimation || *packet > acq.MaxPacketLength {
		return opt, fmt.Errorf("invalid decimation/packet length (%d, %d)", *dec, *packet)
	}

	err = opt.cfg.Validate()
	if err != nil {
		return opt, err
	}

	opt.addr = net.JoinHostPort(*ip, strconv.Itoa(*port))
	opt.timeout = *timeout

	return opt, nil
}

func loadPreset(dbname, name string) (conddb.Preset, error) {
	db, err := conddb.Open(dbname)
	if err != nil {
		return conddb.Preset{}, fmt.Errorf("could not open condition DB: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	var p conddb.Preset
	switch name {
	case "":
		p, err = db.LastPreset(ctx)
	default:
		p, err = db.Preset(ctx, name)
	}
	if err != nil {
		return p, fmt.Errorf("could not load acquisition preset: %w", err)
	}

	err = p.Validate()
	if err != nil {
		return p, err
	}

	return p, nil
}

func process(ctx context.Context, msg *log.Logger, opt *options) error {
	msg.Printf("acquiring %v from %q...", opt.cfg, opt.addr)
	n, err := acq.AcquireFile(ctx, opt.addr, opt.raw, opt.cfg, acq.WithLogger(msg))
	opt.received = n
	if err != nil {
		return fmt.Errorf("could not acquire data: %w", err)
	}
	msg.Printf("stored %d bytes into %q", n, opt.raw)

	if !opt.format && !opt.display {
		return nil
	}

	params, err := adc.NewParams(opt.res, opt.cfg.Gain)
	if err != nil {
		return fmt.Errorf("could not create decoding parameters: %w", err)
	}

	s, err := adc.Open(opt.raw)
	if err != nil {
		return err
	}
	defer s.Close()

	var grp errgroup.Group
	if opt.display {
		grp.Go(func() error {
			msg.Printf("displaying data...")
			n, err := xcnv.Plot(opt.plot, s.Decoder(params))
			if err != nil {
				return fmt.Errorf("could not plot data: %w", err)
			}
			msg.Printf("plotted %d samples into %q", n, opt.plot)
			return nil
		})
	}

	if opt.format {
		grp.Go(func() error {
			msg.Printf("formatting data...")
			n, err := formatCSV(opt.csv, s, params)
			if err != nil {
				return fmt.Errorf("could not format data: %w", err)
			}
			msg.Printf("formatted %d samples into %q", n, opt.csv)
			return nil
		})
	}

	err = grp.Wait()
	if err != nil {
		return err
	}

	return s.Close()
}

func formatCSV(fname string, s *adc.Stream, params adc.Params) (int64, error) {
	f, err := os.Create(fname)
	if err != nil {
		return 0, fmt.Errorf("could not create CSV file: %w", err)
	}
	defer f.Close()

	n, err := xcnv.WriteCSV(f, s.Decoder(params))
	if err != nil {
		return n, err
	}

	err = f.Close()
	if err != nil {
		return n, fmt.Errorf("could not close CSV file: %w", err)
	}

	return n, nil
}
