// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package indicator drives the status LED. The blink half-period encodes
// what the station is doing.
package indicator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/pavilion_station/internal/clock"
)

// State is what the LED currently reports.
type State int

const (
	Idle State = iota
	Measuring
	Saving
	Sending
	Stopped
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Measuring:
		return "measuring"
	case Saving:
		return "saving"
	case Sending:
		return "sending"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Intervals maps each state to its full blink period.
type Intervals struct {
	Idle      time.Duration
	Measuring time.Duration
	Saving    time.Duration
	Sending   time.Duration
	Stopped   time.Duration
	Error     time.Duration
}

// DefaultIntervals matches the station's factory LED cadences.
var DefaultIntervals = Intervals{
	Idle:      time.Second,
	Measuring: time.Second,
	Saving:    500 * time.Millisecond,
	Sending:   100 * time.Millisecond,
	Stopped:   3 * time.Second,
	Error:     200 * time.Millisecond,
}

func (iv Intervals) of(s State) time.Duration {
	switch s {
	case Measuring:
		return iv.Measuring
	case Saving:
		return iv.Saving
	case Sending:
		return iv.Sending
	case Stopped:
		return iv.Stopped
	case Error:
		return iv.Error
	}
	return iv.Idle
}

// Output is the LED pin. gpio.PinOut satisfies it.
type Output interface {
	Out(l gpio.Level) error
}

// Indicator is the LED state machine.
//
// The base state (idle, measuring, stopped, error) is set by the control
// loop and the collector. Saving and Sending are phases layered on top by
// the flush and send jobs; while any phase is active it wins, with Sending
// ranked above Saving. Ending a phase therefore restores whatever the base
// state is at that moment, even if it changed during the phase.
type Indicator struct {
	intervals Intervals

	mu       sync.Mutex
	base     State
	sending  int
	saving   int
	current  State
	seq      uint64
	onChange []func(State)

	// notifyMu serializes callback delivery; delivered is the last seq
	// handed to callbacks.
	notifyMu  sync.Mutex
	delivered uint64
}

// New returns an indicator in the Idle state.
func New(intervals Intervals) *Indicator {
	return &Indicator{intervals: intervals, base: Idle, current: Idle}
}

// OnChange registers fn to be called after effective state changes.
// Callbacks run one at a time on the goroutine that caused the change and
// always receive the state current at delivery, so the last value an
// observer sees is the indicator's state. A change superseded before its
// delivery is not reported on its own. Callbacks must not change the
// indicator.
func (i *Indicator) OnChange(fn func(State)) {
	i.mu.Lock()
	i.onChange = append(i.onChange, fn)
	i.mu.Unlock()
}

// Set replaces the base state.
func (i *Indicator) Set(s State) {
	i.update(func() { i.base = s })
}

// Measured records a successful sampling tick: it clears the error cadence
// and turns idle into measuring. Stopped is left alone.
func (i *Indicator) Measured() {
	i.update(func() {
		if i.base == Idle || i.base == Error {
			i.base = Measuring
		}
	})
}

// Begin enters a Saving or Sending phase and returns the function that
// ends it. The returned function is safe to call more than once.
func (i *Indicator) Begin(phase State) (end func()) {
	i.update(func() { i.adjust(phase, 1) })

	var once sync.Once
	return func() {
		once.Do(func() { i.update(func() { i.adjust(phase, -1) }) })
	}
}

func (i *Indicator) adjust(phase State, delta int) {
	switch phase {
	case Sending:
		i.sending += delta
	case Saving:
		i.saving += delta
	default:
		// Other states are not phases; treat as a base change.
		if delta > 0 {
			i.base = phase
		}
	}
}

func (i *Indicator) effective() State {
	switch {
	case i.sending > 0:
		return Sending
	case i.saving > 0:
		return Saving
	}
	return i.base
}

func (i *Indicator) update(mutate func()) {
	i.mu.Lock()
	mutate()
	next := i.effective()
	changed := next != i.current
	if changed {
		i.current = next
		i.seq++
	}
	i.mu.Unlock()

	if changed {
		i.notify()
	}
}

func (i *Indicator) notify() {
	i.notifyMu.Lock()
	defer i.notifyMu.Unlock()

	i.mu.Lock()
	seq, state := i.seq, i.current
	callbacks := append(([]func(State))(nil), i.onChange...)
	i.mu.Unlock()

	if seq <= i.delivered {
		return
	}
	i.delivered = seq
	for _, fn := range callbacks {
		fn(state)
	}
}

// State returns the effective state.
func (i *Indicator) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Interval returns the blink period of the effective state.
func (i *Indicator) Interval() time.Duration {
	return i.intervals.of(i.State())
}

// Run blinks out until ctx is done. The interval is sampled once at the
// start of each cycle, so a state change shows from the next cycle on.
func (i *Indicator) Run(ctx context.Context, out Output, sleep clock.SleepFunc) error {
	if sleep == nil {
		sleep = clock.Sleep
	}
	defer out.Out(gpio.Low)

	for {
		half := i.Interval() / 2
		if err := sleep(ctx, half); err != nil {
			return err
		}
		if err := out.Out(gpio.High); err != nil {
			log.Printf("indicator: led on: %v", err)
		}
		if err := sleep(ctx, half); err != nil {
			return err
		}
		if err := out.Out(gpio.Low); err != nil {
			log.Printf("indicator: led off: %v", err)
		}
	}
}
