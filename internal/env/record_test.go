// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateMeans(t *testing.T) {
	at := time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)
	snapshot := map[Channel][]float64{
		SolarRadiation:     {10, 20},
		Temperature:        {20, 22},
		RadiantTemperature: {21, 21},
		Humidity:           {50, 52},
		WindSpeed:          {1.0, 2.0},
	}

	rec, err := Aggregate(snapshot, at)
	require.NoError(t, err)

	assert.Equal(t, [5]float64{15.0, 21.0, 21.0, 51.0, 1.5}, rec.Values())
	assert.Equal(t, at, rec.Time)
	assert.Equal(t, 2, rec.Samples)
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	snapshot := map[Channel][]float64{
		SolarRadiation:     {1, 2, 2},    // 1.666..
		Temperature:        {20.04},      // 20.04
		RadiantTemperature: {20.05},      // 20.05
		Humidity:           {33.5, 0.1},  // 16.8
		WindSpeed:          {-1, -1, -1}, // sentinel stays visible
	}

	rec, err := Aggregate(snapshot, time.Now())
	require.NoError(t, err)

	assert.InDelta(t, 1.7, rec.Radiation, 1e-9)
	assert.InDelta(t, 20.0, rec.Temperature, 1e-9)
	assert.InDelta(t, 16.8, rec.Humidity, 1e-9)
	assert.InDelta(t, -1.0, rec.WindSpeed, 1e-9)
}

func TestAggregateEmptyChannel(t *testing.T) {
	snapshot := map[Channel][]float64{
		SolarRadiation:     {10},
		Temperature:        {20},
		RadiantTemperature: {21},
		Humidity:           {},
		WindSpeed:          {1},
	}

	_, err := Aggregate(snapshot, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Contains(t, err.Error(), "humidity")
}

func TestAggregateMissingChannel(t *testing.T) {
	_, err := Aggregate(map[Channel][]float64{}, time.Now())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{"interior": RoleInterior, "0": RoleInterior, "exterior": RoleExterior, "1": RoleExterior} {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("roof")
	assert.Error(t, err)

	assert.True(t, RoleInterior.ReadsRadiation())
	assert.False(t, RoleExterior.ReadsRadiation())
	assert.True(t, RoleInterior.DelaysUplink())
	assert.False(t, RoleExterior.DelaysUplink())
}

func TestReadingValue(t *testing.T) {
	r := Reading{Radiation: 1, Temperature: 2, Radiant: 3, Humidity: 4, WindSpeed: 5}
	for i, ch := range Channels {
		assert.Equal(t, float64(i+1), r.Value(ch), ch.String())
	}
}
