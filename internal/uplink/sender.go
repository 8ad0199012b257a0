// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package uplink averages the send buffer and delivers it over LoRa with
// a bounded number of retries.
package uplink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/pavilion_station/internal/buffer"
	"github.com/relabs-tech/pavilion_station/internal/clock"
	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
	"github.com/relabs-tech/pavilion_station/internal/telemetry"
)

// ErrRetriesExhausted is returned when every attempt of a cycle failed.
var ErrRetriesExhausted = errors.New("uplink: retries exhausted")

// Options tunes a Sender.
type Options struct {
	Role          env.Role
	MaxRetries    int           // attempts after the first one
	RetryInterval time.Duration // pause between attempts
	RoleOffset    time.Duration // wait before the first attempt when the role delays
	Sleep         clock.SleepFunc
	Metrics       *telemetry.Metrics
	Observers     []env.Observer
}

// Sender is the send job.
type Sender struct {
	buf       *buffer.SampleBuffer
	transport Transport
	ind       *indicator.Indicator
	opts      Options

	now func() time.Time
}

// NewSender builds the send job around the send buffer.
func NewSender(buf *buffer.SampleBuffer, transport Transport, ind *indicator.Indicator, opts Options) *Sender {
	if opts.Sleep == nil {
		opts.Sleep = clock.Sleep
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Sender{buf: buf, transport: transport, ind: ind, opts: opts, now: time.Now}
}

// Send runs one send cycle: drain, average, then transmit with retries.
// The indicator shows Sending for the whole cycle. A cycle with an empty
// channel returns an error wrapping env.ErrNoData without transmitting;
// a cycle whose attempts all fail returns ErrRetriesExhausted and its
// aggregate is discarded.
func (s *Sender) Send(ctx context.Context) error {
	end := s.ind.Begin(indicator.Sending)
	defer end()

	log.Printf("uplink: sending via %s...", s.transport.Name())
	started := s.now()

	rec, err := env.Aggregate(s.buf.DrainAndReset(), started)
	if err != nil {
		s.opts.Metrics.FlushSkipped()
		log.Printf("uplink: no data to send in buffer %s (%v)", s.buf.Name(), err)
		return err
	}

	frame := FrameFromRecord(rec, s.opts.Role)

	if s.opts.Role.DelaysUplink() && s.opts.RoleOffset > 0 {
		if err := s.opts.Sleep(ctx, s.opts.RoleOffset); err != nil {
			return err
		}
	}

	attempts, err := s.deliver(ctx, frame)
	s.opts.Metrics.UplinkDone(err == nil, s.now().Sub(started))
	if err != nil {
		log.Printf("uplink: send failed, giving up after %d attempts: %v", attempts, err)
		return err
	}

	log.Printf("uplink: frame %s delivered (attempt %d)", frame.Hex(), attempts)
	for _, o := range s.opts.Observers {
		o.ObserveRecord(env.KindUplink, rec)
	}
	return nil
}

// deliver makes one attempt plus up to MaxRetries retries and stops at
// the first success. It returns the number of attempts made.
func (s *Sender) deliver(ctx context.Context, frame Frame) (int, error) {
	total := s.opts.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= total; attempt++ {
		if attempt > 1 {
			if err := s.opts.Sleep(ctx, s.opts.RetryInterval); err != nil {
				return attempt - 1, err
			}
		}

		s.opts.Metrics.UplinkAttempt()
		lastErr = s.transport.Transmit(ctx, frame)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt < total {
			log.Printf("uplink: attempt %d/%d failed: %v; retrying in %s", attempt, total, lastErr, s.opts.RetryInterval)
		}
	}
	return total, fmt.Errorf("%w: %v", ErrRetriesExhausted, lastErr)
}

// Probe sends one test frame with every value at -1 to check the link at
// startup. It makes a single attempt and never retries.
func (s *Sender) Probe(ctx context.Context) error {
	end := s.ind.Begin(indicator.Sending)
	defer end()

	log.Printf("uplink: device %s (id %d), transport %s", s.opts.Role, int(s.opts.Role), s.transport.Name())

	frame := ProbeFrame(s.opts.Role, s.now())
	if err := s.transport.Transmit(ctx, frame); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}

// ProbeFrame is the test frame sent by Probe.
func ProbeFrame(role env.Role, at time.Time) Frame {
	return Frame{
		Test:        true,
		Timestamp:   uint32(at.Unix()),
		Device:      int(role),
		Radiation:   -1,
		Temperature: -1,
		Radiant:     -1,
		Humidity:    -1,
		WindSpeed:   -1,
	}
}
