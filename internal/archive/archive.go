// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package archive keeps every written or delivered record in SQLite.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

const schema = `CREATE TABLE IF NOT EXISTS records(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	ts INTEGER NOT NULL,
	radiation REAL NOT NULL,
	temperature REAL NOT NULL,
	radiant_temperature REAL NOT NULL,
	humidity REAL NOT NULL,
	wind_speed REAL NOT NULL,
	samples INTEGER NOT NULL
)`

const insertSQL = `INSERT INTO records(run_id, kind, ts, radiation, temperature, radiant_temperature, humidity, wind_speed, samples)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const recentSQL = `SELECT kind, ts, radiation, temperature, radiant_temperature, humidity, wind_speed, samples
FROM records WHERE kind = ? ORDER BY ts DESC, id DESC LIMIT ?`

const insertTimeout = 5 * time.Second

type Config struct {
	Source string
	RunID  string
}

// Entry is one archived record.
type Entry struct {
	Kind env.Kind `json:"kind"`
	env.Record
}

type Store struct {
	db    *sql.DB
	runID string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("archive: database path is empty")
	}
	db, err := sql.Open("sqlite", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	// one writer; the flush and send jobs may insert at the same time
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: create table: %w", err)
	}
	return &Store{db: db, runID: cfg.RunID}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Insert stores one record.
func (s *Store) Insert(ctx context.Context, kind env.Kind, rec env.Record) error {
	_, err := s.db.ExecContext(ctx, insertSQL,
		s.runID, string(kind), rec.Time.Unix(),
		rec.Radiation, rec.Temperature, rec.Radiant, rec.Humidity, rec.WindSpeed,
		rec.Samples,
	)
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// ObserveRecord implements env.Observer. Failures are logged only.
func (s *Store) ObserveRecord(kind env.Kind, rec env.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := s.Insert(ctx, kind, rec); err != nil {
		log.Printf("archive: %v", err)
	}
}

// Recent returns up to limit records of kind, newest first.
func (s *Store) Recent(ctx context.Context, kind env.Kind, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, recentSQL, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var k string
		var ts int64
		if err := rows.Scan(&k, &ts, &e.Radiation, &e.Temperature, &e.Radiant, &e.Humidity, &e.WindSpeed, &e.Samples); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		e.Kind = env.Kind(k)
		e.Time = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
