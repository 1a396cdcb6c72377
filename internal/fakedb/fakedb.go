// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/go-lpc/zmod/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

var db struct {
	mu sync.Mutex

	rows    []Rows
	queries []Query
}

// Query describes a query received by the fake DB.
type Query struct {
	SQL  string
	Args []driver.Value
}

// Run runs f with a fake DB that answers successive queries with the
// provided rows, in order.
// Run returns the queries received while running f.
func Run(ctx context.Context, rows []Rows, f func(ctx context.Context) error) ([]Query, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.rows = rows
	db.queries = nil
	defer func() {
		db.rows = nil
		db.queries = nil
	}()

	err := f(ctx)
	return db.queries, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fakedb: prepared statements not supported")
}

// Close invalidates the connection.
func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	return nil, errors.New("fakedb: transactions not supported")
}

// Ping verifies the connection to the database is still alive.
func (c *Conn) Ping(ctx context.Context) error {
	return ctx.Err()
}

// QueryContext answers the query with the next rows of the fake DB.
// The query and its arguments are recorded.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Query{SQL: query, Args: make([]driver.Value, len(args))}
	for i, arg := range args {
		q.Args[i] = arg.Value
	}
	db.queries = append(db.queries, q)

	if len(db.rows) == 0 {
		return &Rows{}, nil
	}
	rows := db.rows[0]
	db.rows = db.rows[1:]
	return &rows, nil
}

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next is called to populate the next row of data into
// the provided slice.
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver         = (*Driver)(nil)
	_ driver.Conn           = (*Conn)(nil)
	_ driver.Pinger         = (*Conn)(nil)
	_ driver.QueryerContext = (*Conn)(nil)
	_ driver.Rows           = (*Rows)(nil)
)
