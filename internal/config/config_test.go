// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, env.RoleInterior, cfg.DeviceRole)
	assert.Equal(t, TransportRAK811, cfg.TransportVariant)
	assert.Equal(t, time.Second, cfg.SamplePeriod)
	assert.Equal(t, 10, cfg.UplinkMaxRetries)
	assert.Equal(t, 20*time.Second, cfg.UplinkRetryInterval)
	assert.Equal(t, 30*time.Second, cfg.UplinkRoleOffset)
	assert.Equal(t, 5, cfg.JobMaxInstances)
	assert.Equal(t, 5*time.Second, cfg.DisabledPollDelay)
	assert.Equal(t, "0 * * * * *", cfg.FlushSchedule)
	assert.Equal(t, 100*time.Millisecond, cfg.LEDIntervalSend)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station_config.txt")
	content := `# exterior station on the roof
DEVICE_ROLE=exterior
TRANSPORT_VARIANT=lmic
SAMPLE_PERIOD=2
UPLINK_RETRY_INTERVAL=1500ms
SHT31_I2C_ADDR=0x45
SENSORS_MOCK=true
SEND_SCHEDULE=0 */10 * * * *
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, env.RoleExterior, cfg.DeviceRole)
	assert.Equal(t, TransportLMIC, cfg.TransportVariant)
	assert.Equal(t, 2*time.Second, cfg.SamplePeriod)
	assert.Equal(t, 1500*time.Millisecond, cfg.UplinkRetryInterval)
	assert.Equal(t, uint16(0x45), cfg.SHT31I2CAddr)
	assert.True(t, cfg.SensorsMock)
	assert.Equal(t, "0 */10 * * * *", cfg.SendSchedule)
	// untouched keys keep defaults
	assert.Equal(t, 10, cfg.UplinkMaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestFromMapRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown key":     {"WHATEVER": "1"},
		"bad role":        {"DEVICE_ROLE": "garden"},
		"bad variant":     {"TRANSPORT_VARIANT": "wifi"},
		"bad cron":        {"FLUSH_SCHEDULE": "every minute"},
		"five field cron": {"SEND_SCHEDULE": "*/5 * * * *"},
		"zero instances":  {"JOB_MAX_INSTANCES": "0"},
		"negative retry":  {"UPLINK_MAX_RETRIES": "-1"},
		"bad duration":    {"SAMPLE_PERIOD": "soon"},
		"zero period":     {"SAMPLE_PERIOD": "0"},
		"bad addr":        {"BMP280_I2C_ADDR": "0x1FFFF"},
		"bad led":         {"LED_INTERVAL_SEND": "0s"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromMap(values)
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("0.5")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	d, err = parseDuration("3m")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, d)
}
