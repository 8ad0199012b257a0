// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package datalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

const (
	// FileStampLayout names per-run files: dd-mm-YYYY_HH-MM-SS.
	FileStampLayout = "02-01-2006_15-04-05"
	// RowStampLayout is the timestamp column of every data row.
	RowStampLayout = "02/01/2006 15:04:05"
)

// Header is the first line of every data file.
var Header = []string{
	"timestamp",
	"radiation (W*m^-2)",
	"temperature (Celsius)",
	"radiant temperature (Celsius)",
	"humidity (%)",
	"wind speed (m*s^-1)",
}

// CSVFile is the append-only data file of one station run.
type CSVFile struct {
	path string

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// OpenCSV creates dir/data_<started>.csv and writes the header.
// An existing file with the same name is appended to without a new header.
func OpenCSV(dir string, started time.Time) (*CSVFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "data_"+started.Format(FileStampLayout)+".csv")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat data file: %w", err)
	}

	c := &CSVFile{path: path, f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := c.write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return c, nil
}

// Path returns the file location.
func (c *CSVFile) Path() string { return c.path }

// Append writes one record as a row.
func (c *CSVFile) Append(r env.Record) error {
	row := make([]string, 0, len(Header))
	row = append(row, r.Time.Format(RowStampLayout))
	for _, v := range r.Values() {
		row = append(row, strconv.FormatFloat(v, 'f', 1, 64))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(row)
}

func (c *CSVFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSVFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return c.f.Close()
}
