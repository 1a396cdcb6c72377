// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim implements a simulated Zmod instrument.
//
// The simulator serves one client at a time: it reads the configuration
// frame, streams the requested number of samples, rounded up to a whole
// number of packets, and closes the connection.
package sim // import "github.com/go-lpc/zmod/sim"

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
	"golang.org/x/sync/errgroup"
)

// Waveform returns the value of both words of a frame at sample index i,
// as a fraction of the full range of each word.
type Waveform func(cfg acq.Config, i int64) [2]float64

// Sine is the default waveform: a sine on the first word and a cosine on
// the second one, whose period grows with the decimation factor.
func Sine(cfg acq.Config, i int64) [2]float64 {
	const period = 1024
	x := 2 * math.Pi * float64(i) * float64(cfg.Decimation+1) / period
	return [2]float64{0.8 * math.Sin(x), 0.5 * math.Cos(x)}
}

// Server is a simulated Zmod instrument.
type Server struct {
	lis  net.Listener
	msg  *log.Logger
	res  int
	wave Waveform
}

// Option configures a simulated instrument.
type Option func(*Server)

// WithLogger sets the logger of the simulated instrument.
func WithLogger(msg *log.Logger) Option {
	return func(srv *Server) {
		srv.msg = msg
	}
}

// WithResolution sets the ADC resolution of the simulated instrument.
func WithResolution(res int) Option {
	return func(srv *Server) {
		srv.res = res
	}
}

// WithWaveform sets the waveform streamed by the simulated instrument.
func WithWaveform(wave Waveform) Option {
	return func(srv *Server) {
		srv.wave = wave
	}
}

// New creates a simulated instrument listening on addr.
func New(addr string, opts ...Option) (*Server, error) {
	srv := &Server{
		msg:  log.New(os.Stdout, "zmod-sim: ", 0),
		res:  14,
		wave: Sine,
	}
	for _, opt := range opts {
		opt(srv)
	}

	_, err := adc.NewParams(srv.res, [2]acq.Gain{})
	if err != nil {
		return nil, fmt.Errorf("sim: invalid simulator configuration: %w", err)
	}

	srv.lis, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("sim: could not listen on %q: %w", addr, err)
	}

	return srv, nil
}

// Addr returns the address the simulated instrument listens on.
func (srv *Server) Addr() string {
	return srv.lis.Addr().String()
}

// Close stops the simulated instrument.
func (srv *Server) Close() error {
	return srv.lis.Close()
}

// Serve serves clients until ctx is done or the server is closed.
func (srv *Server) Serve(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)
	quit := make(chan struct{})

	grp.Go(func() error {
		select {
		case <-ctx.Done():
			_ = srv.lis.Close()
		case <-quit:
		}
		return nil
	})

	grp.Go(func() error {
		defer close(quit)
		for {
			srv.msg.Printf("waiting for a connection...")
			conn, err := srv.lis.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("sim: could not accept connection: %w", err)
			}

			err = srv.handle(conn)
			if err != nil {
				srv.msg.Printf("could not serve %v: %+v", conn.RemoteAddr(), err)
				continue
			}
		}
	})

	return grp.Wait()
}

func (srv *Server) handle(conn net.Conn) error {
	defer conn.Close()
	srv.msg.Printf("serving %v...", conn.RemoteAddr())
	defer srv.msg.Printf("serving %v... [done]", conn.RemoteAddr())

	var frame [acq.ConfigSize]byte
	_, err := io.ReadFull(conn, frame[:])
	if err != nil {
		return fmt.Errorf("sim: could not receive configuration: %w", err)
	}

	cfg, err := acq.DecodeConfig(frame[:])
	if err != nil {
		return fmt.Errorf("sim: could not decode configuration: %w", err)
	}
	srv.msg.Printf("received configuration: %v", cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("sim: could not setup acquisition: %w", err)
	}

	n, err := srv.stream(conn, cfg)
	if err != nil {
		return fmt.Errorf("sim: could not stream samples: %w", err)
	}
	srv.msg.Printf("sent %d samples", n)

	return nil
}

func (srv *Server) stream(w io.Writer, cfg acq.Config) (int64, error) {
	params, err := adc.NewParams(srv.res, cfg.Gain)
	if err != nil {
		return 0, err
	}

	var (
		n   = Words(cfg)
		bw  = bufio.NewWriterSize(w, acq.MinBufferSize)
		enc = adc.NewEncoder(bw, params)
	)
	for i := int64(0); i < n; i++ {
		v := srv.wave(cfg, i)
		err = enc.Encode(adc.Sample{
			Ch1: v[0] * params.FullRange(0),
			Ch2: v[1] * params.FullRange(1),
		})
		if err != nil {
			return i, err
		}
	}

	err = bw.Flush()
	if err != nil {
		return n, fmt.Errorf("could not flush samples: %w", err)
	}

	return n, nil
}

// Words returns the number of 32-bit words streamed by the instrument for
// the given configuration: the transfer size rounded up to a whole number
// of packets.
func Words(cfg acq.Config) int64 {
	if cfg.TransferSize == 0 || cfg.PacketLength == 0 {
		return 0
	}
	var (
		size   = int64(cfg.TransferSize)
		packet = int64(cfg.PacketLength)
	)
	return (size + packet - 1) / packet * packet
}
