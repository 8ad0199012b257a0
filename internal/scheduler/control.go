// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler drives the station cadences: the switch-gated sampling
// loop and the calendar-aligned flush and send jobs.
package scheduler

import (
	"context"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/pavilion_station/internal/clock"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
)

// NextDelay returns how long to wait from now so the next tick lands on an
// exact multiple of period since epoch.
func NextDelay(now, epoch time.Time, period time.Duration) time.Duration {
	if period <= 0 {
		return 0
	}
	elapsed := now.Sub(epoch) % period
	if elapsed < 0 {
		elapsed += period
	}
	return period - elapsed
}

// Input is the enable switch. gpio.PinIn satisfies it.
type Input interface {
	Read() gpio.Level
}

// ControlConfig wires the control loop.
type ControlConfig struct {
	Switch    Input
	Tick      func() error
	Indicator *indicator.Indicator

	Period    time.Duration // sampling period
	Epoch     time.Time     // ticks are phase-locked to this instant
	PollDelay time.Duration // wait between polls while the switch is off

	Sleep clock.SleepFunc
	Now   func() time.Time
}

// ControlLoop polls the enable switch and runs one sampling tick per
// period while it is on.
type ControlLoop struct {
	cfg     ControlConfig
	enabled bool
}

// NewControlLoop fills unset clock hooks with the real clock.
func NewControlLoop(cfg ControlConfig) *ControlLoop {
	if cfg.Sleep == nil {
		cfg.Sleep = clock.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Epoch.IsZero() {
		cfg.Epoch = cfg.Now()
	}
	return &ControlLoop{cfg: cfg}
}

// Run loops until ctx is done and returns its error.
func (c *ControlLoop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.step(ctx); err != nil {
			return err
		}
	}
}

// step is one loop iteration: poll the switch, then either wait for the
// next aligned tick and run it, or idle for the poll delay.
func (c *ControlLoop) step(ctx context.Context) error {
	if c.cfg.Switch.Read() == gpio.High {
		if !c.enabled {
			c.enabled = true
			c.cfg.Indicator.Set(indicator.Idle)
			log.Printf("scheduler: switch on, starting measures")
		}

		delay := NextDelay(c.cfg.Now(), c.cfg.Epoch, c.cfg.Period)
		if err := c.cfg.Sleep(ctx, delay); err != nil {
			return err
		}
		// Tick logs its own failures; the loop carries on either way.
		_ = c.cfg.Tick()
		return nil
	}

	if c.enabled {
		c.enabled = false
		log.Printf("scheduler: switch turned off, measures stopped")
	}
	log.Printf("scheduler: switch is off, not measuring")
	c.cfg.Indicator.Set(indicator.Stopped)
	return c.cfg.Sleep(ctx, c.cfg.PollDelay)
}
