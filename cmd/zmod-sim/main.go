// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command zmod-sim runs a simulated Zmod instrument.
//
// zmod-sim listens for acquisition requests and answers each of them with
// a synthetic waveform sampled with the requested configuration.
package main // import "github.com/go-lpc/zmod/cmd/zmod-sim"

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/go-lpc/zmod/sim"
)

func main() {
	log.SetPrefix("zmod-sim: ")
	log.SetFlags(0)

	var (
		addr = flag.String("addr", ":8082", "[ip]:[port] to listen on")
		res  = flag.Int("r", 14, "resolution of the simulated Zmod (10, 12 or 14)")
	)

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, *addr, *res)
	if err != nil {
		log.Fatalf("could not run simulator: %+v", err)
	}
}

func run(ctx context.Context, addr string, res int) error {
	srv, err := sim.New(
		addr,
		sim.WithResolution(res),
		sim.WithLogger(log.New(os.Stdout, "zmod-sim: ", 0)),
	)
	if err != nil {
		return err
	}
	defer srv.Close()

	log.Printf("listening on %q (resolution=%d)...", srv.Addr(), res)
	return srv.Serve(ctx)
}
