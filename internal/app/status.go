// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"
	"time"

	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
)

// StatusSnapshot is what the web API and the OLED panel show.
type StatusSnapshot struct {
	RunID      string      `json:"run_id"`
	Role       string      `json:"role"`
	Transport  string      `json:"transport"`
	Started    time.Time   `json:"started"`
	State      string      `json:"state"`
	LastLog    *env.Record `json:"last_log,omitempty"`
	LastUplink *env.Record `json:"last_uplink,omitempty"`
}

// StatusEvent is pushed to live subscribers.
type StatusEvent struct {
	Type   string      `json:"type"` // "record" or "state"
	Kind   env.Kind    `json:"kind,omitempty"`
	Record *env.Record `json:"record,omitempty"`
	State  string      `json:"state,omitempty"`
}

// StatusBoard collects the latest station state from the indicator and the
// record observers.
type StatusBoard struct {
	mu         sync.RWMutex
	snap       StatusSnapshot
	subs       map[chan StatusEvent]struct{}
	subsBuffer int
}

// NewStatusBoard returns a board in the idle state.
func NewStatusBoard(runID string, role env.Role, transport string, started time.Time) *StatusBoard {
	return &StatusBoard{
		snap: StatusSnapshot{
			RunID:     runID,
			Role:      role.String(),
			Transport: transport,
			Started:   started,
			State:     indicator.Idle.String(),
		},
		subs:       make(map[chan StatusEvent]struct{}),
		subsBuffer: 16,
	}
}

// ObserveRecord implements env.Observer.
func (b *StatusBoard) ObserveRecord(kind env.Kind, rec env.Record) {
	b.mu.Lock()
	r := rec
	switch kind {
	case env.KindLog:
		b.snap.LastLog = &r
	case env.KindUplink:
		b.snap.LastUplink = &r
	}
	b.mu.Unlock()

	b.broadcast(StatusEvent{Type: "record", Kind: kind, Record: &r})
}

// SetState records an indicator change.
func (b *StatusBoard) SetState(s indicator.State) {
	b.mu.Lock()
	b.snap.State = s.String()
	b.mu.Unlock()

	b.broadcast(StatusEvent{Type: "state", State: s.String()})
}

// Snapshot returns a copy of the current status.
func (b *StatusBoard) Snapshot() StatusSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.snap
	if b.snap.LastLog != nil {
		r := *b.snap.LastLog
		out.LastLog = &r
	}
	if b.snap.LastUplink != nil {
		r := *b.snap.LastUplink
		out.LastUplink = &r
	}
	return out
}

// Subscribe returns a channel of future events and its cancel function.
// Slow subscribers miss events rather than block the station.
func (b *StatusBoard) Subscribe() (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, b.subsBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *StatusBoard) broadcast(ev StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
