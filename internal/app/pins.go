// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/relabs-tech/pavilion_station/internal/indicator"
	"github.com/relabs-tech/pavilion_station/internal/scheduler"
)

// openPins resolves the enable switch (input, pulled down) and the status
// LED (output, off). The periph host must already be initialized.
func openPins(switchName, ledName string) (scheduler.Input, indicator.Output, error) {
	sw := gpioreg.ByName(switchName)
	if sw == nil {
		return nil, nil, fmt.Errorf("switch pin %s not found", switchName)
	}
	if err := sw.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, nil, fmt.Errorf("switch pin %s: %w", switchName, err)
	}

	led := gpioreg.ByName(ledName)
	if led == nil {
		return nil, nil, fmt.Errorf("led pin %s not found", ledName)
	}
	if err := led.Out(gpio.Low); err != nil {
		return nil, nil, fmt.Errorf("led pin %s: %w", ledName, err)
	}
	return sw, led, nil
}

// benchSwitch is always on; used when running without hardware.
type benchSwitch struct{}

func (benchSwitch) Read() gpio.Level { return gpio.High }

// benchLED discards LED writes.
type benchLED struct{}

func (benchLED) Out(gpio.Level) error { return nil }
