// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zmod-shell is an interactive shell to drive a Zmod instrument.
//
// Example:
//
//	$> zmod-shell -ip 192.168.1.10
//	zmod> set g HIGH,LOW
//	zmod> set t 100000
//	zmod> show
//	zmod> acquire run-001.raw
//	zmod> dump 5
//	zmod> quit
package main // import "github.com/go-lpc/zmod/cmd/zmod-shell"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("zmod-shell: ")
	log.SetFlags(0)

	var (
		ip   = flag.String("ip", "", "IP address of the board containing the Zmod")
		port = flag.Int("port", acq.DefaultPort, "port for the connection")
		hist = flag.String("hist", filepath.Join(os.TempDir(), ".zmod-shell.history"), "path to the history file")
	)

	flag.Parse()

	sh := newShell(os.Stdout)
	if *ip != "" {
		sh.addr = net.JoinHostPort(*ip, strconv.Itoa(*port))
	}

	err := run(sh, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(sh *shell, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}

	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("zmod> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(sh.w)
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		if err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}

var errQuit = errors.New("quit")

type shell struct {
	w   io.Writer
	msg *log.Logger

	addr string
	res  int
	cfg  acq.Config
	last string // last acquired raw file

	cmds map[string]func(args []string) error
}

func newShell(w io.Writer) *shell {
	sh := &shell{
		w:    w,
		msg:  log.New(w, "zmod: ", 0),
		res:  14,
		last: "output.raw",
		cfg: acq.Config{
			TransferSize: 16384,
			Decimation:   10,
			PacketLength: 16384,
		},
	}
	sh.cmds = map[string]func(args []string) error{
		"set":     sh.cmdSet,
		"show":    sh.cmdShow,
		"acquire": sh.cmdAcquire,
		"dump":    sh.cmdDump,
		"help":    sh.cmdHelp,
		"quit":    sh.cmdQuit,
		"exit":    sh.cmdQuit,
	}
	return sh
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}
	cmd, ok := sh.cmds[toks[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", toks[0])
	}
	return cmd(toks[1:])
}

func (sh *shell) complete(line string) []string {
	var out []string
	for name := range sh.cmds {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (sh *shell) cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set <key> <value>")
	}

	var (
		cfg = sh.cfg
		res = sh.res
		key = args[0]
		val = args[1]
		err error
	)

	parseU32 := func(v string) (uint32, error) {
		u, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid value %q for %q: %w", v, key, err)
		}
		return uint32(u), nil
	}

	switch key {
	case "addr":
		if _, _, err := net.SplitHostPort(val); err != nil {
			return fmt.Errorf("invalid address %q: %w", val, err)
		}
		sh.addr = val
		return nil
	case "t":
		cfg.TransferSize, err = parseU32(val)
	case "d":
		cfg.Decimation, err = parseU32(val)
	case "p":
		cfg.PacketLength, err = parseU32(val)
	case "g":
		cfg.Gain, err = acq.ParseGains(val)
	case "c":
		cfg.Coupling, err = acq.ParseCouplings(val)
	case "r":
		res, err = strconv.Atoi(val)
		if err == nil {
			_, err = adc.NewParams(res, cfg.Gain)
		}
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	sh.cfg = cfg
	sh.res = res
	return nil
}

func (sh *shell) cmdShow(args []string) error {
	addr := sh.addr
	if addr == "" {
		addr = "N/A"
	}
	fmt.Fprintf(sh.w, "addr:       %s\n", addr)
	fmt.Fprintf(sh.w, "resolution: %d\n", sh.res)
	fmt.Fprintf(sh.w, "transfer:   %d\n", sh.cfg.TransferSize)
	fmt.Fprintf(sh.w, "gain:       %v,%v\n", sh.cfg.Gain[0], sh.cfg.Gain[1])
	fmt.Fprintf(sh.w, "coupling:   %v,%v\n", sh.cfg.Coupling[0], sh.cfg.Coupling[1])
	fmt.Fprintf(sh.w, "decimation: %d\n", sh.cfg.Decimation)
	fmt.Fprintf(sh.w, "packet:     %d\n", sh.cfg.PacketLength)
	return nil
}

func (sh *shell) cmdAcquire(args []string) error {
	if sh.addr == "" {
		return fmt.Errorf("missing instrument address (use 'set addr <ip>:<port>')")
	}

	fname := sh.last
	if len(args) > 0 {
		fname = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n, err := acq.AcquireFile(ctx, sh.addr, fname, sh.cfg, acq.WithLogger(sh.msg))
	if err != nil {
		return fmt.Errorf("could not acquire data: %w", err)
	}
	sh.last = fname

	fmt.Fprintf(sh.w, "stored %d bytes (%d samples) into %q\n", n, n/adc.FrameSize, fname)
	return nil
}

func (sh *shell) cmdDump(args []string) error {
	nmax := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number of samples %q: %w", args[0], err)
		}
		nmax = v
	}

	params, err := adc.NewParams(sh.res, sh.cfg.Gain)
	if err != nil {
		return err
	}

	s, err := adc.Open(sh.last)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		dec = s.Decoder(params)
		smp adc.Sample
	)
	for i := 0; i < nmax; i++ {
		err := dec.Decode(&smp)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		fmt.Fprintf(sh.w, "#%07d: %v, %v\n", i, smp.Ch1, smp.Ch2)
	}
	if s.Len() > nmax {
		fmt.Fprintf(sh.w, "[...] (%d samples)\n", s.Len())
	}

	return nil
}

func (sh *shell) cmdHelp(args []string) error {
	fmt.Fprint(sh.w, `commands:
 set addr <ip>:<port>  set the address of the instrument
 set t <n>             set the transfer size
 set g <g1>,<g2>       set the HIGH/LOW gains
 set c <c1>,<c2>       set the AC/DC couplings
 set d <n>             set the decimation factor
 set p <n>             set the packet length
 set r <n>             set the resolution (10, 12 or 14)
 show                  show the acquisition configuration
 acquire [file]        run an acquisition and store it into file
 dump [n]              display the first n samples of the last acquisition
 quit                  exit the shell
`)
	return nil
}

func (sh *shell) cmdQuit(args []string) error {
	return errQuit
}
