// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package acq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"
)

// State is the state of an acquisition session.
type State int32

const (
	Idle State = iota
	Connecting
	Configuring
	Streaming
	Complete
	Failed
)

func (st State) String() string {
	switch st {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Configuring:
		return "configuring"
	case Streaming:
		return "streaming"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(st))
	}
}

// Session performs one request/stream exchange with a Zmod instrument:
// it sends a configuration frame and then drains the connection until
// the instrument closes it.
//
// The TransferSize of the configuration is only advisory: the end of the
// stream is signaled by the instrument closing the connection.
type Session struct {
	addr string
	acq  Config
	cfg  config

	state atomic.Int32
	n     atomic.Int64 // number of bytes received so far
}

// NewSession creates a new acquisition session for the instrument at addr.
func NewSession(addr string, acq Config, opts ...Option) *Session {
	sess := &Session{
		addr: addr,
		acq:  acq,
		cfg:  newConfig(),
	}
	for _, opt := range opts {
		opt(&sess.cfg)
	}
	return sess
}

// State returns the current state of the session.
func (sess *Session) State() State {
	return State(sess.state.Load())
}

// Received returns the number of bytes received so far.
func (sess *Session) Received() int64 {
	return sess.n.Load()
}

func (sess *Session) setState(st State) {
	old := State(sess.state.Swap(int32(st)))
	if old != st {
		sess.cfg.msg.Printf("%v -> %v", old, st)
	}
}

// Acquire connects to the instrument, sends the configuration frame and
// writes every received byte, in order, to w.
// Acquire returns the number of bytes written to w.
//
// Cancelling ctx aborts the acquisition. A nil-Done context (such as
// context.Background) waits for the instrument indefinitely, unless
// timeouts were configured with WithDialTimeout or WithReadTimeout.
func (sess *Session) Acquire(ctx context.Context, w io.Writer) (int64, error) {
	sess.n.Store(0)

	conn, err := sess.connect(ctx)
	if err != nil {
		sess.setState(Failed)
		return 0, err
	}
	defer conn.Close()

	if done := ctx.Done(); done != nil {
		quit := make(chan struct{})
		defer close(quit)
		go func() {
			select {
			case <-done:
				// unblock pending reads and writes.
				_ = conn.SetDeadline(time.Unix(1, 0))
			case <-quit:
			}
		}()
	}

	err = sess.configure(ctx, conn)
	if err != nil {
		sess.setState(Failed)
		return 0, err
	}

	err = sess.stream(ctx, w, conn)
	if err != nil {
		sess.setState(Failed)
		return sess.n.Load(), err
	}

	err = conn.Close()
	if err != nil {
		sess.cfg.msg.Printf("could not close connection to %q: %+v", sess.addr, err)
	}
	sess.setState(Complete)

	return sess.n.Load(), nil
}

func (sess *Session) connect(ctx context.Context) (net.Conn, error) {
	sess.setState(Connecting)
	sess.cfg.msg.Printf("searching for connection to %q...", sess.addr)

	dialer := net.Dialer{Timeout: sess.cfg.dial}
	conn, err := dialer.DialContext(ctx, "tcp", sess.addr)
	if err != nil {
		return nil, &ConnectError{Addr: sess.addr, Err: err}
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		err = tcp.SetReadBuffer(MinBufferSize)
		if err != nil {
			sess.cfg.msg.Printf("could not set receive buffer size: %+v", err)
		}
	}

	sess.cfg.msg.Printf("connection to %q found", sess.addr)
	return conn, nil
}

func (sess *Session) configure(ctx context.Context, conn net.Conn) error {
	sess.setState(Configuring)
	sess.cfg.msg.Printf("sending configuration (%v)...", sess.acq)

	frame := EncodeConfig(sess.acq)
	err := writeFull(conn, frame[:])
	if err != nil {
		return &IOError{Phase: Configuring, Err: ctxErr(ctx, err)}
	}
	return nil
}

func (sess *Session) stream(ctx context.Context, w io.Writer, conn net.Conn) error {
	sess.setState(Streaming)
	sess.cfg.msg.Printf("receiving data...")

	buf := make([]byte, sess.cfg.bufsz)
	for {
		if sess.cfg.read > 0 {
			err := conn.SetReadDeadline(time.Now().Add(sess.cfg.read))
			if err != nil {
				return &IOError{Phase: Streaming, Err: err}
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			werr := writeFull(w, buf[:n])
			if werr != nil {
				return &IOError{
					Phase: Streaming,
					Err:   fmt.Errorf("could not write to sink: %w", werr),
				}
			}
			sess.n.Add(int64(n))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return &IOError{Phase: Streaming, Err: ctxErr(ctx, err)}
		}
	}

	sess.cfg.msg.Printf("received %d bytes", sess.n.Load())
	return nil
}

// writeFull writes p to w, retrying short writes.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return cerr
	}
	return err
}

// AcquireFile runs an acquisition against the instrument at addr and
// stores the raw stream into the file fname.
func AcquireFile(ctx context.Context, addr, fname string, acq Config, opts ...Option) (int64, error) {
	f, err := os.Create(fname)
	if err != nil {
		return 0, fmt.Errorf("acq: could not create raw file %q: %w", fname, err)
	}
	defer f.Close()

	n, err := NewSession(addr, acq, opts...).Acquire(ctx, f)
	if err != nil {
		return n, err
	}

	err = f.Close()
	if err != nil {
		return n, fmt.Errorf("acq: could not close raw file %q: %w", fname, err)
	}

	return n, nil
}
