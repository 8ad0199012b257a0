// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCount(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.TickOK()
	m.TickOK()
	m.TickFailed()
	m.WindFailed()
	m.Calibration(true)
	m.Calibration(false)
	m.Calibration(false)
	m.RecordWritten()
	m.FlushSkipped()
	m.UplinkAttempt()
	m.UplinkAttempt()
	m.UplinkDone(true, 2*time.Second)
	m.UplinkDone(false, 200*time.Second)
	m.JobSkipped("send")
	m.IndicatorState(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tickFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.windFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calibrations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.calibrations.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uplinkAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uplinkSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uplinkFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(m.uplinkDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsSkipped.WithLabelValues("send")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.indicatorState))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TickOK()
		m.TickFailed()
		m.WindFailed()
		m.Calibration(true)
		m.RecordWritten()
		m.FlushSkipped()
		m.UplinkAttempt()
		m.UplinkDone(false, time.Second)
		m.JobSkipped("flush")
		m.IndicatorState(1)
	})
}
