// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"log"
	"os"
	"time"
)

const (
	// MinBufferSize is the minimum size of the receive buffer, matching the
	// send cadence of the instrument.
	MinBufferSize = 65536

	// DefaultPort is the TCP port the instrument listens on.
	DefaultPort = 8082
)

type config struct {
	msg *log.Logger

	dial  time.Duration // connect timeout. 0: no timeout.
	read  time.Duration // per-read timeout. 0: no timeout.
	bufsz int
}

func newConfig() config {
	return config{
		msg:   log.New(os.Stdout, "zmod: ", 0),
		bufsz: MinBufferSize,
	}
}

// Option configures an acquisition session.
type Option func(*config)

// WithLogger sets the logger used to report session state transitions.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithDialTimeout bounds the time spent connecting to the instrument.
func WithDialTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.dial = d
	}
}

// WithReadTimeout bounds the time spent waiting for each read
// from the instrument.
func WithReadTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.read = d
	}
}

// WithBufferSize sets the size of the receive buffer.
// Sizes smaller than MinBufferSize are raised to MinBufferSize.
func WithBufferSize(n int) Option {
	return func(cfg *config) {
		if n < MinBufferSize {
			n = MinBufferSize
		}
		cfg.bufsz = n
	}
}
