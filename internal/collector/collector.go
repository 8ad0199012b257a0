// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package collector takes one reading per sampling tick and appends it to
// the station's sample buffers.
package collector

import (
	"fmt"
	"log"

	"github.com/relabs-tech/pavilion_station/internal/buffer"
	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
	"github.com/relabs-tech/pavilion_station/internal/sensors"
	"github.com/relabs-tech/pavilion_station/internal/telemetry"
)

// Options tunes a Collector.
type Options struct {
	Role env.Role
	// PressureEvery is the number of ticks between anemometer pressure
	// calibrations. The first tick always calibrates.
	PressureEvery int
	Metrics       *telemetry.Metrics
}

// Collector reads the sensor suite once per tick.
// Tick is not safe for concurrent use; the control loop is its only caller.
type Collector struct {
	suite   sensors.Suite
	ind     *indicator.Indicator
	opts    Options
	buffers []*buffer.SampleBuffer

	tick uint64
}

// New returns a collector appending every reading to each of buffers.
func New(suite sensors.Suite, ind *indicator.Indicator, opts Options, buffers ...*buffer.SampleBuffer) *Collector {
	if opts.PressureEvery <= 0 {
		opts.PressureEvery = 1
	}
	return &Collector{suite: suite, ind: ind, opts: opts, buffers: buffers}
}

// Tick runs one sampling tick. Either every buffer receives one value per
// channel or none does; a non-nil error means nothing was appended.
func (c *Collector) Tick() error {
	n := c.tick
	c.tick++

	// 1) Pressure calibration. Side effect only; never aborts the tick.
	if n%uint64(c.opts.PressureEvery) == 0 {
		c.calibratePressure(n)
	}

	reading, err := c.read(n)
	if err != nil {
		c.opts.Metrics.TickFailed()
		c.ind.Set(indicator.Error)
		log.Printf("collector: tick %d aborted: %v", n, err)
		return err
	}

	// 5) Commit to every buffer. Each append holds that buffer's lock for
	// all five channels.
	for _, b := range c.buffers {
		b.AppendReading(reading)
	}
	c.opts.Metrics.TickOK()
	c.ind.Measured()
	return nil
}

func (c *Collector) calibratePressure(n uint64) {
	pressure, altitude, err := c.suite.ReadAmbientPressure()
	if err != nil {
		c.opts.Metrics.Calibration(false)
		log.Printf("collector: tick %d: read pressure: %v", n, err)
		return
	}
	if err := c.suite.SetAnemometerPressure(fmt.Sprintf("%.1f", pressure)); err != nil {
		c.opts.Metrics.Calibration(false)
		log.Printf("collector: tick %d: push pressure %.1f hPa to anemometer: %v", n, pressure, err)
		return
	}
	c.opts.Metrics.Calibration(true)
	log.Printf("collector: anemometer calibrated at %.1f hPa (altitude %.0f m)", pressure, altitude)
}

func (c *Collector) read(n uint64) (env.Reading, error) {
	var r env.Reading
	var err error

	// 2) Temperatures and humidity are mandatory.
	if r.Radiant, err = c.suite.ReadRadiantTemperature(); err != nil {
		return r, fmt.Errorf("%s: %w", env.RadiantTemperature, err)
	}
	if r.Temperature, r.Humidity, err = c.suite.ReadAirTemperatureAndHumidity(); err != nil {
		return r, fmt.Errorf("%s/%s: %w", env.Temperature, env.Humidity, err)
	}

	// 3) Wind falls back to the sentinel.
	if r.WindSpeed, err = c.suite.ReadWindSpeed(); err != nil {
		c.opts.Metrics.WindFailed()
		log.Printf("collector: tick %d: %s: %v", n, env.WindSpeed, err)
		r.WindSpeed = env.WindSentinel
	}

	// 4) Radiation only where the pyranometer is mounted.
	if c.opts.Role.ReadsRadiation() {
		if r.Radiation, err = c.suite.ReadSolarRadiation(); err != nil {
			return r, fmt.Errorf("%s: %w", env.SolarRadiation, err)
		}
	}
	return r, nil
}
