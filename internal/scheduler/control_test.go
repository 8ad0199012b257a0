// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/pavilion_station/internal/indicator"
)

func TestNextDelay(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Second, NextDelay(epoch, epoch, time.Second))
	assert.Equal(t, 700*time.Millisecond, NextDelay(epoch.Add(300*time.Millisecond), epoch, time.Second))
	assert.Equal(t, 100*time.Millisecond, NextDelay(epoch.Add(41*time.Second+900*time.Millisecond), epoch, time.Second))
	assert.Equal(t, 4*time.Second, NextDelay(epoch.Add(6*time.Second), epoch, 5*time.Second))
	// clock stepped behind the epoch
	assert.Equal(t, 800*time.Millisecond, NextDelay(epoch.Add(-800*time.Millisecond), epoch, time.Second))
	assert.Zero(t, NextDelay(epoch, epoch, 0))
}

func TestNextDelayDoesNotDrift(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := epoch
	for i := 1; i <= 50; i++ {
		now = now.Add(NextDelay(now, epoch, time.Second))
		assert.Equal(t, epoch.Add(time.Duration(i)*time.Second), now)
		// tick work eats part of the next period
		now = now.Add(137 * time.Millisecond)
	}
}

// levels replays switch positions, then reports the last one forever.
type levels struct {
	seq []gpio.Level
	i   int
}

func (l *levels) Read() gpio.Level {
	v := l.seq[l.i]
	if l.i < len(l.seq)-1 {
		l.i++
	}
	return v
}

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	f.now = f.now.Add(d)
	return ctx.Err()
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func newTestLoop(sw Input, clk *fakeClock, ind *indicator.Indicator, ticks *int) *ControlLoop {
	return NewControlLoop(ControlConfig{
		Switch:    sw,
		Tick:      func() error { *ticks++; return nil },
		Indicator: ind,
		Period:    time.Second,
		Epoch:     clk.now,
		PollDelay: 5 * time.Second,
		Sleep:     clk.Sleep,
		Now:       clk.Now,
	})
}

func TestControlLoopSwitchOff(t *testing.T) {
	logs := captureLog(t)
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ind := indicator.New(indicator.DefaultIntervals)
	ticks := 0
	loop := newTestLoop(&levels{seq: []gpio.Level{gpio.Low}}, clk, ind, &ticks)

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.step(context.Background()))
	}

	assert.Zero(t, ticks)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, clk.slept)
	assert.Equal(t, indicator.Stopped, ind.State())
	assert.Equal(t, 3, strings.Count(logs.String(), "switch is off"))
	assert.NotContains(t, logs.String(), "turned off")
}

func TestControlLoopEdges(t *testing.T) {
	logs := captureLog(t)
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ind := indicator.New(indicator.DefaultIntervals)
	ind.Set(indicator.Stopped)
	ticks := 0
	sw := &levels{seq: []gpio.Level{gpio.High, gpio.High, gpio.High, gpio.Low, gpio.Low, gpio.High}}
	loop := newTestLoop(sw, clk, ind, &ticks)

	var states []indicator.State
	for i := 0; i < 6; i++ {
		require.NoError(t, loop.step(context.Background()))
		states = append(states, ind.State())
	}

	assert.Equal(t, 4, ticks)
	assert.Equal(t, []indicator.State{
		indicator.Idle, indicator.Idle, indicator.Idle,
		indicator.Stopped, indicator.Stopped,
		indicator.Idle,
	}, states)
	assert.Equal(t, 2, strings.Count(logs.String(), "switch on, starting measures"))
	assert.Equal(t, 1, strings.Count(logs.String(), "switch turned off"))
	assert.Equal(t, []time.Duration{
		time.Second, time.Second, time.Second,
		5 * time.Second, 5 * time.Second,
		time.Second,
	}, clk.slept)
}

func TestControlLoopTickFailureKeepsRunning(t *testing.T) {
	captureLog(t)
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ind := indicator.New(indicator.DefaultIntervals)
	calls := 0
	loop := NewControlLoop(ControlConfig{
		Switch:    &levels{seq: []gpio.Level{gpio.High}},
		Tick:      func() error { calls++; return errors.New("i2c") },
		Indicator: ind,
		Period:    time.Second,
		Epoch:     clk.now,
		PollDelay: 5 * time.Second,
		Sleep:     clk.Sleep,
		Now:       clk.Now,
	})

	require.NoError(t, loop.step(context.Background()))
	require.NoError(t, loop.step(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestControlLoopRunStopsOnCancel(t *testing.T) {
	captureLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ind := indicator.New(indicator.DefaultIntervals)
	ticks := 0
	loop := NewControlLoop(ControlConfig{
		Switch: &levels{seq: []gpio.Level{gpio.High}},
		Tick: func() error {
			ticks++
			if ticks == 3 {
				cancel()
			}
			return nil
		},
		Indicator: ind,
		Period:    time.Second,
		PollDelay: 5 * time.Second,
		Sleep:     clk.Sleep,
		Now:       clk.Now,
	})

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, ticks)
}
