// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the station counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticks          prometheus.Counter
	tickFailures   prometheus.Counter
	windFailures   prometheus.Counter
	calibrations   *prometheus.CounterVec
	recordsWritten prometheus.Counter
	flushSkipped   prometheus.Counter
	uplinkAttempts prometheus.Counter
	uplinkFailures prometheus.Counter
	uplinkSent     prometheus.Counter
	uplinkDuration prometheus.Histogram
	jobsSkipped    *prometheus.CounterVec
	indicatorState prometheus.Gauge
}

// NewMetrics creates the station metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_ticks_total",
			Help: "Sampling ticks that appended a full reading to both buffers.",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_tick_failures_total",
			Help: "Sampling ticks aborted by a temperature or humidity read failure.",
		}),
		windFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_wind_failures_total",
			Help: "Wind reads that failed and were recorded as the sentinel.",
		}),
		calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "station_pressure_calibrations_total",
			Help: "Pressure pushes to the anemometer by outcome.",
		}, []string{"result"}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_records_written_total",
			Help: "Aggregate records appended to the data file.",
		}),
		flushSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_flush_skipped_total",
			Help: "Flush or send cycles skipped because a channel had no data.",
		}),
		uplinkAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_uplink_attempts_total",
			Help: "Transmission attempts, retries included.",
		}),
		uplinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_uplink_failures_total",
			Help: "Send cycles abandoned after the retry budget was spent.",
		}),
		uplinkSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_uplink_sent_total",
			Help: "Send cycles that delivered their aggregate.",
		}),
		uplinkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "station_uplink_cycle_seconds",
			Help:    "Wall time of a send cycle from drain to outcome.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		jobsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "station_job_runs_skipped_total",
			Help: "Scheduled job runs dropped because the instance limit was reached.",
		}, []string{"job"}),
		indicatorState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "station_indicator_state",
			Help: "Current indicator state (0 idle, 1 measuring, 2 saving, 3 sending, 4 stopped, 5 error).",
		}),
	}

	reg.MustRegister(
		m.ticks, m.tickFailures, m.windFailures, m.calibrations,
		m.recordsWritten, m.flushSkipped,
		m.uplinkAttempts, m.uplinkFailures, m.uplinkSent, m.uplinkDuration,
		m.jobsSkipped, m.indicatorState,
	)
	return m
}

func (m *Metrics) TickOK() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) TickFailed() {
	if m != nil {
		m.tickFailures.Inc()
	}
}

func (m *Metrics) WindFailed() {
	if m != nil {
		m.windFailures.Inc()
	}
}

// Calibration counts a pressure push; ok selects the result label.
func (m *Metrics) Calibration(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.calibrations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordWritten() {
	if m != nil {
		m.recordsWritten.Inc()
	}
}

func (m *Metrics) FlushSkipped() {
	if m != nil {
		m.flushSkipped.Inc()
	}
}

func (m *Metrics) UplinkAttempt() {
	if m != nil {
		m.uplinkAttempts.Inc()
	}
}

// UplinkDone records the outcome of a whole send cycle.
func (m *Metrics) UplinkDone(sent bool, took time.Duration) {
	if m == nil {
		return
	}
	if sent {
		m.uplinkSent.Inc()
	} else {
		m.uplinkFailures.Inc()
	}
	m.uplinkDuration.Observe(took.Seconds())
}

func (m *Metrics) JobSkipped(job string) {
	if m != nil {
		m.jobsSkipped.WithLabelValues(job).Inc()
	}
}

// IndicatorState publishes the numeric indicator state.
func (m *Metrics) IndicatorState(v int) {
	if m != nil {
		m.indicatorState.Set(float64(v))
	}
}
