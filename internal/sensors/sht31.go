// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// ErrCRC is returned when a SHT31 word fails its checksum.
var ErrCRC = errors.New("sht31: crc mismatch")

// Single-shot measurement, high repeatability, clock stretching disabled.
var sht31MeasureCmd = []byte{0x24, 0x00}

// SHT31 reads air temperature and relative humidity from a Sensirion SHT3x.
// periph has no driver for it, so this talks to the chip directly.
type SHT31 struct {
	dev  i2c.Dev
	wait time.Duration // conversion time before the result can be read
}

// NewSHT31 returns a SHT31 on bus at addr (0x44 or 0x45).
func NewSHT31(bus i2c.Bus, addr uint16) *SHT31 {
	return &SHT31{dev: i2c.Dev{Bus: bus, Addr: addr}, wait: 15 * time.Millisecond}
}

// TemperatureAndHumidity triggers one conversion and returns °C and %RH.
func (s *SHT31) TemperatureAndHumidity() (float64, float64, error) {
	if err := s.dev.Tx(sht31MeasureCmd, nil); err != nil {
		return 0, 0, fmt.Errorf("sht31 measure: %w", err)
	}
	if s.wait > 0 {
		time.Sleep(s.wait)
	}

	buf := make([]byte, 6)
	if err := s.dev.Tx(nil, buf); err != nil {
		return 0, 0, fmt.Errorf("sht31 read: %w", err)
	}
	if crc8(buf[0:2]) != buf[2] {
		return 0, 0, fmt.Errorf("temperature word: %w", ErrCRC)
	}
	if crc8(buf[3:5]) != buf[5] {
		return 0, 0, fmt.Errorf("humidity word: %w", ErrCRC)
	}

	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])
	temp := -45 + 175*float64(rawT)/65535
	hum := 100 * float64(rawH) / 65535
	return temp, hum, nil
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
