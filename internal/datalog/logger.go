// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package datalog turns the log buffer into one CSV row per flush.
package datalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/pavilion_station/internal/buffer"
	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
	"github.com/relabs-tech/pavilion_station/internal/telemetry"
)

// Sink stores aggregate records. *CSVFile is the station's sink.
type Sink interface {
	Append(r env.Record) error
}

// Logger is the flush job.
type Logger struct {
	buf       *buffer.SampleBuffer
	sink      Sink
	ind       *indicator.Indicator
	metrics   *telemetry.Metrics
	observers []env.Observer

	now func() time.Time
}

// NewLogger builds the flush job around the log buffer.
func NewLogger(buf *buffer.SampleBuffer, sink Sink, ind *indicator.Indicator, metrics *telemetry.Metrics, observers ...env.Observer) *Logger {
	return &Logger{
		buf:       buf,
		sink:      sink,
		ind:       ind,
		metrics:   metrics,
		observers: observers,
		now:       time.Now,
	}
}

// Flush drains the log buffer and appends its means to the sink.
// If any channel is empty the drained samples are dropped, nothing is
// written, and an error wrapping env.ErrNoData is returned.
func (l *Logger) Flush(ctx context.Context) error {
	end := l.ind.Begin(indicator.Saving)
	defer end()

	at := l.now()
	snap := l.buf.DrainAndReset()

	rec, err := env.Aggregate(snap, at)
	if err != nil {
		l.metrics.FlushSkipped()
		if errors.Is(err, env.ErrNoData) {
			log.Printf("datalog: no data to write at %s in buffer %s (%v)", at.Format(RowStampLayout), l.buf.Name(), err)
		}
		return err
	}

	if err := l.sink.Append(rec); err != nil {
		log.Printf("datalog: write record: %v", err)
		return fmt.Errorf("append record: %w", err)
	}
	l.metrics.RecordWritten()
	log.Printf("datalog: measures logged (%d samples)", rec.Samples)

	for _, o := range l.observers {
		o.ObserveRecord(env.KindLog, rec)
	}
	return nil
}
