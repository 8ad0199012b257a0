// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// seaLevelHPa is the reference pressure for the altitude estimate.
const seaLevelHPa = 1013.25

type bmp280 struct {
	dev *bmxx80.Dev
}

func openBMP280(bus i2c.Bus, addr uint16) (*bmp280, error) {
	opts := bmxx80.Opts{
		Temperature: bmxx80.O2x,
		Pressure:    bmxx80.O16x,
		Humidity:    bmxx80.Off, // BMP280 has no humidity sensor
		Filter:      bmxx80.F4,
	}
	dev, err := bmxx80.NewI2C(bus, addr, &opts)
	if err != nil {
		return nil, fmt.Errorf("bmp280 init (0x%02X): %w", addr, err)
	}
	return &bmp280{dev: dev}, nil
}

// PressureAndAltitude reads station pressure (hPa) and the altitude (m)
// it implies against a standard sea-level pressure.
func (b *bmp280) PressureAndAltitude() (float64, float64, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return 0, 0, fmt.Errorf("bmp280 sense: %w", err)
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	hPa := pressurePa / 100.0 // 1 hPa = 100 Pa
	return hPa, altitudeFromPressure(hPa), nil
}

// altitudeFromPressure is the international barometric formula.
func altitudeFromPressure(hPa float64) float64 {
	return 44330.0 * (1.0 - math.Pow(hPa/seaLevelHPa, 0.1903))
}
