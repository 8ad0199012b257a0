// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/pavilion_station/internal/archive"
	"github.com/relabs-tech/pavilion_station/internal/buffer"
	"github.com/relabs-tech/pavilion_station/internal/collector"
	"github.com/relabs-tech/pavilion_station/internal/config"
	"github.com/relabs-tech/pavilion_station/internal/datalog"
	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
	"github.com/relabs-tech/pavilion_station/internal/scheduler"
	"github.com/relabs-tech/pavilion_station/internal/sensors"
	"github.com/relabs-tech/pavilion_station/internal/telemetry"
	"github.com/relabs-tech/pavilion_station/internal/uplink"
)

// RunStation runs the measurement station until SIGINT or SIGTERM.
func RunStation() error {
	cfg := config.Get()
	started := time.Now()

	// 1) Per-run process log next to stderr
	logFile, err := openRunLog(cfg.LogDir, started)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	defer log.SetOutput(os.Stderr)

	runID := uuid.NewString()
	log.Printf("station: run %s, role %s (device id %d), transport %s",
		runID, cfg.DeviceRole, int(cfg.DeviceRole), cfg.TransportVariant)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2) Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// 3) Hardware: sensors, switch and LED
	var (
		suite sensors.Suite
		sw    scheduler.Input
		led   indicator.Output
	)
	if cfg.SensorsMock {
		log.Println("station: using mock sensors, switch always on")
		suite, sw, led = sensors.NewMockSuite(), benchSwitch{}, benchLED{}
	} else {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph: %w", err)
		}
		if sw, led, err = openPins(cfg.SwitchGPIO, cfg.LEDGPIO); err != nil {
			return err
		}
		hw, err := sensors.NewHardware(cfg)
		if err != nil {
			return err
		}
		defer hw.Close()
		suite = hw
	}

	// 4) Record sinks and observers
	csvFile, err := datalog.OpenCSV(cfg.DataDir, started)
	if err != nil {
		return err
	}
	defer csvFile.Close()
	log.Printf("station: data file %s", csvFile.Path())

	transport := newTransport(cfg)
	board := NewStatusBoard(runID, cfg.DeviceRole, transport.Name(), started)
	observers := []env.Observer{board}

	var store *archive.Store
	if cfg.ArchiveDBPath != "" {
		store, err = archive.New(ctx, archive.Config{Source: cfg.ArchiveDBPath, RunID: runID})
		if err != nil {
			return err
		}
		defer store.Close()
		observers = append(observers, store)
		log.Printf("station: archiving records in %s", cfg.ArchiveDBPath)
	}

	var mirror *telemetry.Mirror
	if cfg.MQTTBroker != "" {
		client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			// The mirror is optional; the station keeps measuring without it.
			log.Printf("station: %v; MQTT mirror disabled", err)
		} else {
			defer client.Disconnect(250)
			mirror = telemetry.NewMirror(client, telemetry.MirrorConfig{
				TopicRecords: cfg.TopicRecords,
				TopicStatus:  cfg.TopicStatus,
				RunID:        runID,
				Role:         cfg.DeviceRole,
			})
			observers = append(observers, mirror)
			log.Printf("station: mirroring to MQTT broker at %s", cfg.MQTTBroker)
		}
	}

	// 5) Indicator
	ind := indicator.New(intervalsFromConfig(cfg))
	ind.OnChange(func(s indicator.State) {
		metrics.IndicatorState(int(s))
		board.SetState(s)
		if mirror != nil {
			mirror.PublishState(s)
		}
	})

	// 6) Pipeline
	logBuf, sendBuf := buffer.New("log"), buffer.New("send")
	coll := collector.New(suite, ind, collector.Options{
		Role:          cfg.DeviceRole,
		PressureEvery: cfg.PressureUpdateTicks,
		Metrics:       metrics,
	}, logBuf, sendBuf)
	logger := datalog.NewLogger(logBuf, csvFile, ind, metrics, observers...)
	sender := uplink.NewSender(sendBuf, transport, ind, uplink.Options{
		Role:          cfg.DeviceRole,
		MaxRetries:    cfg.UplinkMaxRetries,
		RetryInterval: cfg.UplinkRetryInterval,
		RoleOffset:    cfg.UplinkRoleOffset,
		Metrics:       metrics,
		Observers:     observers,
	})

	// 7) Background loops
	var wg sync.WaitGroup
	goLoop := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && ctx.Err() == nil {
				log.Printf("station: %s stopped: %v", name, err)
			}
		}()
	}

	goLoop("indicator", func() error { return ind.Run(ctx, led, nil) })
	if cfg.WebServerPort > 0 {
		handler := newWebHandler(board, store, reg)
		goLoop("web server", func() error { return serveWeb(ctx, cfg.WebServerPort, handler) })
	}
	if cfg.DisplayEnabled && !cfg.SensorsMock {
		goLoop("display", func() error { return runDisplay(ctx, cfg.I2CBus, board, cfg.DisplayUpdateInterval) })
	}

	// 8) Startup probe; a failure does not stop the station
	if err := sender.Probe(ctx); err != nil {
		log.Printf("station: LoRa probe failed, continuing: %v", err)
	} else {
		log.Printf("station: LoRa probe frame sent")
	}

	// 9) Calendar jobs
	jobs := scheduler.NewJobs(ctx, time.Local, metrics)
	if err := jobs.Add("flush", cfg.FlushSchedule, cfg.JobMaxInstances, logger.Flush); err != nil {
		return err
	}
	if err := jobs.Add("send", cfg.SendSchedule, cfg.JobMaxInstances, sender.Send); err != nil {
		return err
	}
	jobs.Start()

	// 10) Control loop on this goroutine
	loop := scheduler.NewControlLoop(scheduler.ControlConfig{
		Switch:    sw,
		Tick:      coll.Tick,
		Indicator: ind,
		Period:    cfg.SamplePeriod,
		Epoch:     started,
		PollDelay: cfg.DisabledPollDelay,
	})
	err = loop.Run(ctx)

	log.Println("station: shutting down")
	jobs.Stop()
	wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// RunProbe sends a single test frame and reports the outcome.
func RunProbe() error {
	cfg := config.Get()

	transport := newTransport(cfg)
	ind := indicator.New(intervalsFromConfig(cfg))
	sender := uplink.NewSender(buffer.New("probe"), transport, ind, uplink.Options{Role: cfg.DeviceRole})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return sender.Probe(ctx)
}

func newTransport(cfg *config.Config) uplink.Transport {
	if cfg.TransportVariant == config.TransportLMIC {
		return uplink.NewLMIC(cfg.LMICExePath)
	}
	return uplink.NewRAK811(uplink.RAK811Config{
		Port:     cfg.LoRaSerialPort,
		BaudRate: cfg.LoRaBaudRate,
		Region:   cfg.LoRaRegion,
		AppEUI:   cfg.LoRaAppEUI,
		AppKey:   cfg.LoRaAppKey,
		TxPower:  cfg.LoRaTxPower,
		DataRate: cfg.LoRaDataRate,
	})
}

func intervalsFromConfig(cfg *config.Config) indicator.Intervals {
	return indicator.Intervals{
		Idle:      cfg.LEDIntervalIdle,
		Measuring: cfg.LEDIntervalMeasure,
		Saving:    cfg.LEDIntervalSave,
		Sending:   cfg.LEDIntervalSend,
		Stopped:   cfg.LEDIntervalStopped,
		Error:     cfg.LEDIntervalError,
	}
}

// openRunLog creates dir/logs_<dd-mm-YYYY_HH-MM-SS>.log.
func openRunLog(dir string, started time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, "logs_"+started.Format(datalog.FileStampLayout)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
