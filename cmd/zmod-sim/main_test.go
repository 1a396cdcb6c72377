// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"log"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	defer func(w io.Writer) { log.SetOutput(w) }(log.Writer())
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := run(ctx, "localhost:0", 12)
	if err != nil {
		t.Fatalf("could not run simulator: %+v", err)
	}
}

func TestRunInvalid(t *testing.T) {
	err := run(context.Background(), "localhost:0", 8)
	if err == nil {
		t.Fatalf("expected an error")
	}
}
