// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// ErrAnemometerResponse is returned when the anemometer answers with
// something that is not a measurement.
var ErrAnemometerResponse = errors.New("anemometer: unexpected response")

// Anemometer talks to the ultrasonic anemometer over its RS-485/USB bridge.
// The port is opened for each exchange and closed afterwards, so a replugged
// adapter is picked up on the next tick.
type Anemometer struct {
	open func() (io.ReadWriteCloser, error)
}

// NewAnemometer returns an anemometer on portName at baud 8N1 with a 5 s read timeout.
func NewAnemometer(portName string, baud uint) *Anemometer {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: 5000, // ms, overall read timeout when MinimumReadSize is 0
	}
	return &Anemometer{
		open: func() (io.ReadWriteCloser, error) { return serial.Open(opts) },
	}
}

// Measure asks for one reading and returns the wind speed in m/s.
func (a *Anemometer) Measure() (float64, error) {
	port, err := a.open()
	if err != nil {
		return 0, fmt.Errorf("anemometer open: %w", err)
	}
	defer port.Close()

	// A space requests the current measurement line.
	if _, err := port.Write([]byte(" ")); err != nil {
		return 0, fmt.Errorf("anemometer request: %w", err)
	}

	line, err := bufio.NewReader(port).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("anemometer read: %w", err)
	}
	return parseWindLine(line)
}

// SetPressure sends a barometric calibration value (hPa) to the anemometer.
func (a *Anemometer) SetPressure(pressure string) error {
	port, err := a.open()
	if err != nil {
		return fmt.Errorf("anemometer open: %w", err)
	}
	defer port.Close()

	reader := bufio.NewReader(port)

	// 'B' enters pressure calibration; the device prompts with ':'.
	if _, err := port.Write([]byte("B")); err != nil {
		return fmt.Errorf("anemometer calibration request: %w", err)
	}
	if _, err := reader.ReadString(':'); err != nil {
		return fmt.Errorf("anemometer calibration prompt: %w", err)
	}

	if _, err := port.Write([]byte(pressure)); err != nil {
		return fmt.Errorf("anemometer write pressure: %w", err)
	}
	if _, err := reader.ReadByte(); err != nil {
		return fmt.Errorf("anemometer pressure echo: %w", err)
	}

	// Carriage return validates the value.
	if _, err := port.Write([]byte("\r")); err != nil {
		return fmt.Errorf("anemometer validate: %w", err)
	}
	if _, err := reader.ReadByte(); err != nil {
		return fmt.Errorf("anemometer validate ack: %w", err)
	}
	return nil
}

// parseWindLine extracts the speed from a measurement line; the first
// whitespace separated field is the speed in m/s.
func parseWindLine(line string) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, ErrAnemometerResponse
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAnemometerResponse, strings.TrimSpace(line))
	}
	return v, nil
}
