// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/semaphore"

	"github.com/relabs-tech/pavilion_station/internal/telemetry"
)

// JobFunc is a scheduled job body. A returned error is logged with the job name.
type JobFunc func(ctx context.Context) error

// Jobs runs cron-scheduled jobs, each capped at a number of concurrent runs.
type Jobs struct {
	ctx       context.Context
	scheduler *gocron.Scheduler
	metrics   *telemetry.Metrics

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// NewJobs creates the job scheduler in loc. Job runs receive ctx.
func NewJobs(ctx context.Context, loc *time.Location, metrics *telemetry.Metrics) *Jobs {
	return &Jobs{
		ctx:       ctx,
		scheduler: gocron.NewScheduler(loc),
		metrics:   metrics,
	}
}

// Add schedules fn on a six-field cron expression (seconds first).
// A run that fires while maxInstances runs are still going is skipped.
func (j *Jobs) Add(name, spec string, maxInstances int, fn JobFunc) error {
	run := j.limit(name, maxInstances, fn)
	if _, err := j.scheduler.CronWithSeconds(spec).Tag(name).Do(run); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	log.Printf("scheduler: job %s scheduled at %q (max %d instances)", name, spec, maxInstances)
	return nil
}

// limit wraps fn with a per-job instance cap.
func (j *Jobs) limit(name string, maxInstances int, fn JobFunc) func() {
	if maxInstances < 1 {
		maxInstances = 1
	}
	sem := semaphore.NewWeighted(int64(maxInstances))

	return func() {
		if !sem.TryAcquire(1) {
			j.metrics.JobSkipped(name)
			log.Printf("scheduler: job %s skipped, %d instances still running", name, maxInstances)
			return
		}
		defer sem.Release(1)

		if !j.enter() {
			return
		}
		defer j.running.Done()

		if err := fn(j.ctx); err != nil {
			log.Printf("scheduler: job %s: %v", name, err)
		}
	}
}

// enter registers a run unless Stop has been called.
func (j *Jobs) enter() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return false
	}
	j.running.Add(1)
	return true
}

// Start runs the scheduler in the background until Stop.
func (j *Jobs) Start() {
	j.scheduler.StartAsync()
}

// Stop halts the scheduler and waits for runs already in flight.
func (j *Jobs) Stop() {
	j.scheduler.Stop()
	j.mu.Lock()
	j.stopped = true
	j.mu.Unlock()
	j.running.Wait()
}
