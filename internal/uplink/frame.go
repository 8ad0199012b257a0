// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uplink

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

// FrameSize is the length of an encoded uplink frame.
const FrameSize = 15

const (
	frameVersion = 1
	flagTest     = 0x80
)

// Frame is one uplink payload.
//
// Wire layout, big-endian:
//
//	[0]     control: version | 0x80 if test | (device&7)<<4
//	[1:5]   uint32 unix timestamp
//	[5:7]   int16 radiation * 100
//	[7:9]   int16 temperature * 100
//	[9:11]  int16 radiant temperature * 100
//	[11:13] int16 humidity * 100
//	[13:15] int16 wind speed * 1000
type Frame struct {
	Test      bool
	Timestamp uint32
	Device    int

	Radiation   float64
	Temperature float64
	Radiant     float64
	Humidity    float64
	WindSpeed   float64
}

// FrameFromRecord builds a data frame for role from an aggregate record.
func FrameFromRecord(rec env.Record, role env.Role) Frame {
	return Frame{
		Timestamp:   uint32(rec.Time.Unix()),
		Device:      int(role),
		Radiation:   rec.Radiation,
		Temperature: rec.Temperature,
		Radiant:     rec.Radiant,
		Humidity:    rec.Humidity,
		WindSpeed:   rec.WindSpeed,
	}
}

// Control returns the control byte.
func (f Frame) Control() byte {
	c := byte(frameVersion)
	if f.Test {
		c |= flagTest
	}
	return c | byte(f.Device&7)<<4
}

// Encode packs the frame. Scaled values are truncated toward zero and
// saturate at the int16 limits.
func (f Frame) Encode() []byte {
	buf := make([]byte, FrameSize)
	buf[0] = f.Control()
	binary.BigEndian.PutUint32(buf[1:5], f.Timestamp)
	binary.BigEndian.PutUint16(buf[5:7], uint16(scale(f.Radiation, 100)))
	binary.BigEndian.PutUint16(buf[7:9], uint16(scale(f.Temperature, 100)))
	binary.BigEndian.PutUint16(buf[9:11], uint16(scale(f.Radiant, 100)))
	binary.BigEndian.PutUint16(buf[11:13], uint16(scale(f.Humidity, 100)))
	binary.BigEndian.PutUint16(buf[13:15], uint16(scale(f.WindSpeed, 1000)))
	return buf
}

// Hex returns the encoded frame as lowercase hex, the form both modems take.
func (f Frame) Hex() string {
	return hex.EncodeToString(f.Encode())
}

func scale(v, factor float64) int16 {
	x := math.Trunc(v * factor)
	switch {
	case math.IsNaN(x):
		return 0
	case x > math.MaxInt16:
		return math.MaxInt16
	case x < math.MinInt16:
		return math.MinInt16
	}
	return int16(x)
}
