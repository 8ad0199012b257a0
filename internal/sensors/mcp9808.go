// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/mcp9808"
)

// radiantThermometer is the MCP9808 sitting inside the black globe.
type radiantThermometer struct {
	dev *mcp9808.Dev
}

func openRadiantThermometer(bus i2c.Bus) (*radiantThermometer, error) {
	dev, err := mcp9808.New(bus, &mcp9808.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("mcp9808 init: %w", err)
	}
	return &radiantThermometer{dev: dev}, nil
}

// Temperature returns the globe temperature in °C.
func (r *radiantThermometer) Temperature() (float64, error) {
	var e physic.Env
	if err := r.dev.Sense(&e); err != nil {
		return 0, fmt.Errorf("mcp9808 sense: %w", err)
	}
	return e.Temperature.Celsius(), nil
}
