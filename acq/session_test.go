// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-lpc/zmod/acq"
	"github.com/go-lpc/zmod/adc"
)

var msg = log.New(io.Discard, "", 0)

// instrument is a fake Zmod instrument serving a single connection.
type instrument struct {
	lis  net.Listener
	cfg  chan []byte
	quit chan struct{}
}

// newInstrument starts a fake instrument that reads the configuration
// frame, sends payload and closes the connection.
// If hold is true, the connection is kept open until the instrument is
// closed.
func newInstrument(t *testing.T, payload []byte, hold bool) *instrument {
	t.Helper()

	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("could not create fake instrument: %+v", err)
	}

	srv := &instrument{
		lis:  lis,
		cfg:  make(chan []byte, 1),
		quit: make(chan struct{}),
	}

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, acq.ConfigSize)
		_, err = io.ReadFull(conn, buf)
		if err != nil {
			t.Errorf("could not read configuration frame: %+v", err)
			return
		}
		srv.cfg <- buf

		_, err = conn.Write(payload)
		if err != nil {
			t.Errorf("could not send payload: %+v", err)
			return
		}

		if hold {
			<-srv.quit
		}
	}()

	return srv
}

func (srv *instrument) addr() string { return srv.lis.Addr().String() }

func (srv *instrument) close() {
	close(srv.quit)
	_ = srv.lis.Close()
}

func TestSessionAcquire(t *testing.T) {
	cfg := acq.Config{
		TransferSize: 10,
		Gain:         [2]acq.Gain{acq.Low, acq.Low},
		Coupling:     [2]acq.Coupling{acq.AC, acq.AC},
		Decimation:   10,
		PacketLength: 16384,
	}

	for _, tc := range []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"forty", 40},
		{"one-buffer", acq.MinBufferSize},
		{"multi-buffers", 4*acq.MinBufferSize + 12},
	} {
		t.Run(tc.name, func(t *testing.T) {
			payload := make([]byte, tc.size)
			for i := range payload {
				payload[i] = byte(i % 251)
			}

			srv := newInstrument(t, payload, false)
			defer srv.close()

			var (
				sink = new(bytes.Buffer)
				sess = acq.NewSession(srv.addr(), cfg, acq.WithLogger(msg))
			)

			if got, want := sess.State(), acq.Idle; got != want {
				t.Fatalf("invalid initial state: got=%v, want=%v", got, want)
			}

			n, err := sess.Acquire(context.Background(), sink)
			if err != nil {
				t.Fatalf("could not run acquisition: %+v", err)
			}

			if got, want := n, int64(tc.size); got != want {
				t.Fatalf("invalid number of bytes: got=%d, want=%d", got, want)
			}
			if got, want := sess.Received(), int64(tc.size); got != want {
				t.Fatalf("invalid number of received bytes: got=%d, want=%d", got, want)
			}
			if got, want := sess.State(), acq.Complete; got != want {
				t.Fatalf("invalid state: got=%v, want=%v", got, want)
			}
			if !bytes.Equal(sink.Bytes(), payload) {
				t.Fatalf("invalid sink content")
			}

			frame := <-srv.cfg
			want := acq.EncodeConfig(cfg)
			if !bytes.Equal(frame, want[:]) {
				t.Fatalf("invalid configuration frame:\ngot= % x\nwant=% x", frame, want)
			}
		})
	}
}

func TestSessionAdvisoryTransferSize(t *testing.T) {
	// the instrument sends more than requested: everything is kept.
	payload := make([]byte, 4*100)
	srv := newInstrument(t, payload, false)
	defer srv.close()

	sink := new(bytes.Buffer)
	n, err := acq.NewSession(
		srv.addr(), acq.Config{TransferSize: 1}, acq.WithLogger(msg),
	).Acquire(context.Background(), sink)
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}
	if got, want := n, int64(len(payload)); got != want {
		t.Fatalf("invalid number of bytes: got=%d, want=%d", got, want)
	}
}

func TestSessionThenDecode(t *testing.T) {
	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(i)
	}

	srv := newInstrument(t, payload, false)
	defer srv.close()

	tmp, err := os.MkdirTemp("", "zmod-acq-")
	if err != nil {
		t.Fatalf("could not create tmp dir: %+v", err)
	}
	defer os.RemoveAll(tmp)

	fname := filepath.Join(tmp, "output.raw")
	cfg := acq.Config{TransferSize: 10, Gain: [2]acq.Gain{acq.Low, acq.High}}
	n, err := acq.AcquireFile(context.Background(), srv.addr(), fname, cfg, acq.WithLogger(msg))
	if err != nil {
		t.Fatalf("could not acquire raw file: %+v", err)
	}
	if got, want := n, int64(40); got != want {
		t.Fatalf("invalid number of bytes: got=%d, want=%d", got, want)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read raw file: %+v", err)
	}
	if !bytes.Equal(raw, payload) {
		t.Fatalf("invalid raw file content")
	}

	params, err := adc.NewParams(14, cfg.Gain)
	if err != nil {
		t.Fatalf("could not create decoding parameters: %+v", err)
	}

	f, err := adc.Open(fname)
	if err != nil {
		t.Fatalf("could not open raw file: %+v", err)
	}
	defer f.Close()

	samples, err := f.ReadAll(params)
	if err != nil {
		t.Fatalf("could not decode raw file: %+v", err)
	}
	if got, want := len(samples), 10; got != want {
		t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
	}
}

func TestSessionConnectError(t *testing.T) {
	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("could not listen: %+v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	sess := acq.NewSession(addr, acq.Config{}, acq.WithLogger(msg), acq.WithDialTimeout(time.Second))
	_, err = sess.Acquire(context.Background(), io.Discard)
	if err == nil {
		t.Fatalf("expected an error")
	}

	var cerr *acq.ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("invalid error type: %T (%+v)", err, err)
	}
	if got, want := cerr.Addr, addr; got != want {
		t.Fatalf("invalid address: got=%q, want=%q", got, want)
	}
	if got, want := sess.State(), acq.Failed; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
}

type failingWriter struct {
	n int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.n--
	return len(p), nil
}

func TestSessionSinkError(t *testing.T) {
	srv := newInstrument(t, make([]byte, 1024), false)
	defer srv.close()

	sess := acq.NewSession(srv.addr(), acq.Config{}, acq.WithLogger(msg))
	_, err := sess.Acquire(context.Background(), &failingWriter{})
	if err == nil {
		t.Fatalf("expected an error")
	}

	var ioerr *acq.IOError
	if !errors.As(err, &ioerr) {
		t.Fatalf("invalid error type: %T (%+v)", err, err)
	}
	if got, want := ioerr.Phase, acq.Streaming; got != want {
		t.Fatalf("invalid phase: got=%v, want=%v", got, want)
	}
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := sess.State(), acq.Failed; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
}

// trickle accepts at most one byte per write.
type trickle struct {
	buf bytes.Buffer
}

func (w *trickle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return w.buf.Write(p[:1])
}

func TestSessionShortWrites(t *testing.T) {
	payload := []byte("0123456789abcdef")
	srv := newInstrument(t, payload, false)
	defer srv.close()

	var sink trickle
	_, err := acq.NewSession(srv.addr(), acq.Config{}, acq.WithLogger(msg)).Acquire(context.Background(), &sink)
	if err != nil {
		t.Fatalf("could not run acquisition: %+v", err)
	}
	if got, want := sink.buf.String(), string(payload); got != want {
		t.Fatalf("invalid sink content: got=%q, want=%q", got, want)
	}
}

func TestSessionCancel(t *testing.T) {
	srv := newInstrument(t, make([]byte, 8), true)
	defer srv.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-srv.cfg
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	sink := new(bytes.Buffer)
	sess := acq.NewSession(srv.addr(), acq.Config{}, acq.WithLogger(msg))
	_, err := sess.Acquire(ctx, sink)
	if err == nil {
		t.Fatalf("expected an error")
	}

	var ioerr *acq.IOError
	if !errors.As(err, &ioerr) {
		t.Fatalf("invalid error type: %T (%+v)", err, err)
	}
	if got, want := ioerr.Phase, acq.Streaming; got != want {
		t.Fatalf("invalid phase: got=%v, want=%v", got, want)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := sink.Len(), 8; got != want {
		t.Fatalf("invalid sink size: got=%d, want=%d", got, want)
	}
}

func TestSessionReadTimeout(t *testing.T) {
	srv := newInstrument(t, nil, true)
	defer srv.close()

	sess := acq.NewSession(
		srv.addr(), acq.Config{},
		acq.WithLogger(msg),
		acq.WithReadTimeout(50*time.Millisecond),
		acq.WithBufferSize(1024),
	)
	_, err := sess.Acquire(context.Background(), io.Discard)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestStateString(t *testing.T) {
	for _, tc := range []struct {
		st   acq.State
		want string
	}{
		{acq.Idle, "idle"},
		{acq.Connecting, "connecting"},
		{acq.Configuring, "configuring"},
		{acq.Streaming, "streaming"},
		{acq.Complete, "complete"},
		{acq.Failed, "failed"},
		{acq.State(42), "State(42)"},
	} {
		if got := tc.st.String(); got != tc.want {
			t.Fatalf("invalid state name: got=%q, want=%q", got, tc.want)
		}
	}
}
