// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// Pyranometer reads the thermopile voltage of the pyranometer through an
// ADS1115 in differential mode (A0 - A1).
type Pyranometer struct {
	pin     ads1x15.PinADC
	divider float64 // sensor sensitivity, V per W/m²
	gain    float64
}

// OpenPyranometer opens the ADC. gain is the ADS1115 PGA factor; 16 gives
// the ±0.256 V range the pyranometer output needs.
func OpenPyranometer(bus i2c.Bus, divider, gain float64) (*Pyranometer, error) {
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("ads1115 init: %w", err)
	}

	fullScale := physic.ElectricPotential(4.096 / gain * float64(physic.Volt))
	pin, err := adc.PinForChannel(ads1x15.Channel0Minus1, fullScale, 8*physic.Hertz, ads1x15.BestQuality)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel 0-1: %w", err)
	}
	return &Pyranometer{pin: pin, divider: divider, gain: gain}, nil
}

// Radiation returns the global solar radiation in W/m².
func (p *Pyranometer) Radiation() (float64, error) {
	sample, err := p.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("ads1115 read: %w", err)
	}
	volts := float64(sample.V) / float64(physic.Volt)
	return radiationFromVolts(volts, p.divider, p.gain), nil
}

// Halt stops the ADC conversion.
func (p *Pyranometer) Halt() error {
	return p.pin.Halt()
}

// radiationFromVolts converts the thermopile voltage to W/m². The signal is
// noisy around zero at night, so negative values are clamped.
func radiationFromVolts(volts, divider, gain float64) float64 {
	if divider == 0 || gain == 0 {
		return 0
	}
	w := volts / divider
	if w < 0 {
		w = 0
	}
	return w / gain
}
