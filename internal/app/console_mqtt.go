// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pavilion_station/internal/config"
	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/telemetry"
)

// RunConsoleMQTT prints the records and status a station mirrors on MQTT.
func RunConsoleMQTT() error {
	cfg := config.Get()
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is not set")
	}

	client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to records
	recordsToken := client.Subscribe(cfg.TopicRecords, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var m telemetry.RecordMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			log.Printf("console: record unmarshal error: %v", err)
			return
		}
		fmt.Println(formatRecordMessage(m))
	})
	recordsToken.Wait()
	if recordsToken.Error() != nil {
		return recordsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicRecords)

	// Subscribe to status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.StatusMessage
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Printf("[STATE] %-8s %-10s run=%s at %s\n", s.Role, s.State, s.RunID, s.Time.Format("15:04:05"))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatRecordMessage(m telemetry.RecordMessage) string {
	tag := "LOG "
	if m.Kind == env.KindUplink {
		tag = "SEND"
	}
	return fmt.Sprintf(
		"[%s] %s %-8s RAD=%6.1f T=%5.1f TG=%5.1f H=%5.1f%% WIND=%5.1f n=%d",
		tag, m.Time.Format("02/01/2006 15:04:05"), m.Role,
		m.Radiation, m.Temperature, m.Radiant, m.Humidity, m.WindSpeed, m.Samples,
	)
}
