// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "fmt"

// Channel is one measured physical quantity. The set is closed.
type Channel int

const (
	SolarRadiation Channel = iota
	Temperature
	RadiantTemperature
	Humidity
	WindSpeed
)

// Channels lists every channel in record column order.
var Channels = [...]Channel{SolarRadiation, Temperature, RadiantTemperature, Humidity, WindSpeed}

// WindSentinel is stored in place of a wind speed the anemometer failed to report.
const WindSentinel = -1.0

func (c Channel) String() string {
	switch c {
	case SolarRadiation:
		return "solar_radiation"
	case Temperature:
		return "temperature"
	case RadiantTemperature:
		return "radiant_temperature"
	case Humidity:
		return "humidity"
	case WindSpeed:
		return "wind_speed"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Reading is the result of one successful sampling tick: one value per channel.
type Reading struct {
	Radiation   float64 `json:"radiation"`    // W/m²
	Temperature float64 `json:"temp_c"`       // °C
	Radiant     float64 `json:"radiant_c"`    // °C (globe thermometer)
	Humidity    float64 `json:"humidity_pct"` // %RH
	WindSpeed   float64 `json:"wind_ms"`      // m/s, WindSentinel on anemometer failure
}

// Value returns the reading's value for ch.
func (r Reading) Value(ch Channel) float64 {
	switch ch {
	case SolarRadiation:
		return r.Radiation
	case Temperature:
		return r.Temperature
	case RadiantTemperature:
		return r.Radiant
	case Humidity:
		return r.Humidity
	case WindSpeed:
		return r.WindSpeed
	}
	return 0
}

// Role is the fixed identity of the controller on a site.
// The numeric values are the device ids carried in the uplink frame.
type Role int

const (
	RoleInterior Role = 0
	RoleExterior Role = 1
)

// ParseRole accepts "interior"/"exterior" or the numeric device id.
func ParseRole(s string) (Role, error) {
	switch s {
	case "interior", "0":
		return RoleInterior, nil
	case "exterior", "1":
		return RoleExterior, nil
	}
	return 0, fmt.Errorf("unknown device role %q (want interior or exterior)", s)
}

func (r Role) String() string {
	switch r {
	case RoleInterior:
		return "interior"
	case RoleExterior:
		return "exterior"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ReadsRadiation reports whether this role owns the pyranometer.
// The exterior device always reports zero radiation.
func (r Role) ReadsRadiation() bool { return r != RoleExterior }

// DelaysUplink reports whether this role waits before transmitting so it
// does not collide with the paired device on the same channel.
func (r Role) DelaysUplink() bool { return r == RoleInterior }
