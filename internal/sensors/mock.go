// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"
)

// mockSuite generates smoothly changing plausible weather for bench runs
// without any sensor attached.
type mockSuite struct {
	start time.Time
}

// NewMockSuite creates a Suite that never fails.
func NewMockSuite() Suite {
	return &mockSuite{start: time.Now()}
}

func (m *mockSuite) elapsed() float64 {
	return time.Since(m.start).Seconds()
}

func (m *mockSuite) ReadAmbientPressure() (float64, float64, error) {
	p := 963 + 2*math.Sin(m.elapsed()/3600)
	return p, altitudeFromPressure(p), nil
}

func (m *mockSuite) SetAnemometerPressure(string) error { return nil }

func (m *mockSuite) ReadRadiantTemperature() (float64, error) {
	return 23 + 3*math.Sin(m.elapsed()/600), nil
}

func (m *mockSuite) ReadAirTemperatureAndHumidity() (float64, float64, error) {
	e := m.elapsed()
	return 21 + 2*math.Sin(e/900), 48 + 6*math.Cos(e/1200), nil
}

func (m *mockSuite) ReadWindSpeed() (float64, error) {
	return math.Abs(3 * math.Sin(m.elapsed()*0.7)), nil
}

func (m *mockSuite) ReadSolarRadiation() (float64, error) {
	return math.Max(0, 600*math.Sin(m.elapsed()/7200)), nil
}
