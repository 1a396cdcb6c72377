// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb gives access to the acquisition presets stored in the
// Zmod condition database.
package conddb // import "github.com/go-lpc/zmod/conddb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	host = "localhost"
	usr  = "username"
	pwd  = "s3cr3t"

	drvName = "mysql"
)

// ErrNoPreset is returned when a requested preset could not be found.
var ErrNoPreset = errors.New("conddb: no such preset")

// DB exposes convenience methods to easily retrieve acquisition presets
// from the Zmod database.
type DB struct {
	db   *sql.DB
	name string // name of the Zmod database
}

// Open opens a connection to the Zmod database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	cfg := mysql.NewConfig()
	cfg.User = usr
	cfg.Passwd = pwd
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = db
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

const presetColumns = `name, transfer_size,
	gain_ch1, gain_ch2, coupling_ch1, coupling_ch2,
	decimation, packet_length, resolution, datetime`

// LastPreset returns the most recent acquisition preset.
func (db *DB) LastPreset(ctx context.Context) (Preset, error) {
	ps, err := db.query(
		ctx, "last preset",
		"SELECT "+presetColumns+" FROM presets ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return Preset{}, err
	}
	if len(ps) == 0 {
		return Preset{}, fmt.Errorf("conddb: could not find last preset: %w", ErrNoPreset)
	}
	return ps[0], nil
}

// Preset returns the most recent acquisition preset with the provided name.
func (db *DB) Preset(ctx context.Context, name string) (Preset, error) {
	ps, err := db.query(
		ctx, "preset "+name,
		"SELECT "+presetColumns+" FROM presets WHERE name=? ORDER BY datetime DESC LIMIT 1",
		name,
	)
	if err != nil {
		return Preset{}, err
	}
	if len(ps) == 0 {
		return Preset{}, fmt.Errorf("conddb: could not find preset %q: %w", name, ErrNoPreset)
	}
	return ps[0], nil
}

// Presets returns all the acquisition presets, most recent first.
func (db *DB) Presets(ctx context.Context) ([]Preset, error) {
	return db.query(
		ctx, "presets",
		"SELECT "+presetColumns+" FROM presets ORDER BY datetime DESC",
	)
}

func (db *DB) query(ctx context.Context, what, query string, args ...interface{}) ([]Preset, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var ps []Preset
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ps, fmt.Errorf("conddb: could not query %s: %w", what, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p    Preset
			gain [2]string
			cpl  [2]string
		)
		err = rows.Scan(
			&p.Name, &p.Config.TransferSize,
			&gain[0], &gain[1], &cpl[0], &cpl[1],
			&p.Config.Decimation, &p.Config.PacketLength,
			&p.Resolution, &p.Created,
		)
		if err != nil {
			return ps, fmt.Errorf("conddb: could not scan row %d for %s: %w", len(ps), what, err)
		}

		err = p.setChannels(gain, cpl)
		if err != nil {
			return ps, fmt.Errorf("conddb: invalid row %d for %s: %w", len(ps), what, err)
		}

		ps = append(ps, p)
	}

	if err := rows.Err(); err != nil {
		return ps, fmt.Errorf("conddb: could not scan db for %s: %w", what, err)
	}

	if err := ctx.Err(); err != nil {
		return ps, fmt.Errorf("conddb: context error while retrieving %s: %w", what, err)
	}

	return ps, nil
}
