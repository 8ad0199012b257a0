// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoData is returned when a channel has no readings at drain time.
var ErrNoData = errors.New("no data")

// Kind tells which pipeline produced a record.
type Kind string

const (
	KindLog    Kind = "log"
	KindUplink Kind = "uplink"
)

// Record is one aggregate row: the per-channel means of a drained buffer.
type Record struct {
	Time        time.Time `json:"time"`
	Radiation   float64   `json:"radiation"`
	Temperature float64   `json:"temp_c"`
	Radiant     float64   `json:"radiant_c"`
	Humidity    float64   `json:"humidity_pct"`
	WindSpeed   float64   `json:"wind_ms"`
	Samples     int       `json:"samples"`
}

// Values returns the means in record column order.
func (r Record) Values() [5]float64 {
	return [5]float64{r.Radiation, r.Temperature, r.Radiant, r.Humidity, r.WindSpeed}
}

// Observer receives every record the station writes or delivers.
type Observer interface {
	ObserveRecord(kind Kind, r Record)
}

// Round1 rounds x to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Mean returns the arithmetic mean of values, or ErrNoData if empty.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoData
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// Aggregate computes a Record from a drained buffer snapshot. Every channel
// must hold at least one reading; otherwise ErrNoData is returned naming the
// first empty channel and no partial record is produced.
func Aggregate(snapshot map[Channel][]float64, at time.Time) (Record, error) {
	var means [len(Channels)]float64
	samples := 0
	for i, ch := range Channels {
		m, err := Mean(snapshot[ch])
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", ch, err)
		}
		means[i] = Round1(m)
		if n := len(snapshot[ch]); i == 0 || n < samples {
			samples = n
		}
	}
	return Record{
		Time:        at,
		Radiation:   means[0],
		Temperature: means[1],
		Radiant:     means[2],
		Humidity:    means[3],
		WindSpeed:   means[4],
		Samples:     samples,
	}, nil
}
