// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zmod-tdaq starts a TDAQ server driving a Zmod instrument.
//
// The /config command carries the address of the instrument followed by
// the acquisition parameters. Once the run is started, acquisitions are
// performed back to back and each raw stream is published on the /adc
// output.
package main // import "github.com/go-lpc/zmod/cmd/zmod-tdaq"

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
)

func main() {
	cmd := flags.New()

	dev := zmod{
		name: cmd.Args[0],
		msg:  log.New(os.Stdout, "zmod-tdaq: ", 0),
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/adc", dev.adc)

	srv.RunHandle(dev.run)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type zmod struct {
	name string
	msg  *log.Logger

	addr string
	res  int
	cfg  acq.Config

	n    int // number of acquisitions
	data chan []byte
}

func (dev *zmod) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
	addr := dec.ReadStr()
	res := int(dec.ReadU32())
	cfg := acq.Config{
		TransferSize: dec.ReadU32(),
		Gain: [2]acq.Gain{
			acq.Gain(dec.ReadU32()),
			acq.Gain(dec.ReadU32()),
		},
		Coupling: [2]acq.Coupling{
			acq.Coupling(dec.ReadU32()),
			acq.Coupling(dec.ReadU32()),
		},
		Decimation:   dec.ReadU32(),
		PacketLength: dec.ReadU32(),
	}

	err := dev.configure(addr, res, cfg)
	if err != nil {
		ctx.Msg.Errorf("could not configure %s: %+v", dev.name, err)
		return err
	}
	ctx.Msg.Infof("configured %s: addr=%q res=%d %v", dev.name, addr, res, cfg)
	return nil
}

func (dev *zmod) configure(addr string, res int, cfg acq.Config) error {
	if addr == "" {
		return fmt.Errorf("missing instrument address")
	}
	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid acquisition configuration: %w", err)
	}
	_, err = adc.NewParams(res, cfg.Gain)
	if err != nil {
		return fmt.Errorf("invalid acquisition configuration: %w", err)
	}

	dev.addr = addr
	dev.res = res
	dev.cfg = cfg
	return nil
}

func (dev *zmod) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	dev.data = make(chan []byte, 16)
	dev.n = 0
	return nil
}

func (dev *zmod) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	dev.data = make(chan []byte, 16)
	dev.n = 0
	return nil
}

func (dev *zmod) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if dev.addr == "" {
		return fmt.Errorf("%s not configured", dev.name)
	}
	return nil
}

func (dev *zmod) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	n := dev.n
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	return nil
}

func (dev *zmod) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	return nil
}

func (dev *zmod) adc(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-dev.data:
		dst.Body = data
	}
	return nil
}

func (dev *zmod) run(ctx tdaq.Context) error {
	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		default:
			raw, err := dev.acquire(ctx.Ctx)
			if err != nil {
				if ctx.Ctx.Err() != nil {
					return nil
				}
				ctx.Msg.Errorf("could not acquire data: %+v", err)
				time.Sleep(time.Second)
				continue
			}
			select {
			case dev.data <- raw:
				dev.n++
			case <-ctx.Ctx.Done():
				return nil
			}
		}
	}
}

// acquire runs one acquisition and returns the raw stream.
func (dev *zmod) acquire(ctx context.Context) ([]byte, error) {
	buf := new(bytes.Buffer)
	_, err := acq.NewSession(
		dev.addr, dev.cfg,
		acq.WithLogger(dev.msg),
		acq.WithDialTimeout(5*time.Second),
	).Acquire(ctx, buf)
	if err != nil {
		return nil, err
	}

	if n := buf.Len() % adc.FrameSize; n != 0 {
		dev.msg.Printf("dropping %d trailing bytes", n)
		buf.Truncate(buf.Len() - n)
	}
	return buf.Bytes(), nil
}
