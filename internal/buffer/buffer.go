// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package buffer holds the per-channel sample accumulators shared between
// the sampling loop and the flush/send jobs.
package buffer

import (
	"sync"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

// Snapshot is the content of a buffer at drain time, keyed by channel.
// It belongs to the caller once returned.
type Snapshot map[env.Channel][]float64

// SampleBuffer accumulates readings per channel until drained.
// All mutations happen under one mutex so an append is either entirely
// inside a drain or entirely after it.
type SampleBuffer struct {
	name string

	mu   sync.Mutex
	data map[env.Channel][]float64
}

// New returns an empty buffer. name labels it in log lines.
func New(name string) *SampleBuffer {
	return &SampleBuffer{name: name, data: emptyData()}
}

func emptyData() map[env.Channel][]float64 {
	m := make(map[env.Channel][]float64, len(env.Channels))
	for _, ch := range env.Channels {
		m[ch] = nil
	}
	return m
}

// Name returns the buffer's label.
func (b *SampleBuffer) Name() string { return b.name }

// Append adds one value to ch alone. Sampling goes through AppendReading;
// Append is for feeding a single channel, such as a replayed or partial
// series, where a whole Reading is not available.
func (b *SampleBuffer) Append(ch env.Channel, v float64) {
	b.mu.Lock()
	b.data[ch] = append(b.data[ch], v)
	b.mu.Unlock()
}

// AppendReading adds one value per channel as a single atomic step.
func (b *SampleBuffer) AppendReading(r env.Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range env.Channels {
		b.data[ch] = append(b.data[ch], r.Value(ch))
	}
}

// DrainAndReset returns everything buffered so far and leaves the buffer
// empty. Every known channel is present in the result, empty if it was
// never sampled. The reset allocates a fresh map; nothing is shared with
// the returned snapshot.
func (b *SampleBuffer) DrainAndReset() Snapshot {
	b.mu.Lock()
	out := b.data
	b.data = emptyData()
	b.mu.Unlock()

	for _, ch := range env.Channels {
		if out[ch] == nil {
			out[ch] = []float64{}
		}
	}
	return Snapshot(out)
}

// Len returns the number of readings currently held for ch. It is the
// fill-level query for callers that must not drain the buffer.
func (b *SampleBuffer) Len(ch env.Channel) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data[ch])
}
