// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
)

const publishTimeout = 2 * time.Second

// Publisher is the part of mqtt.Client the mirror uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// RecordMessage is the JSON published for every record.
type RecordMessage struct {
	Kind  env.Kind `json:"kind"`
	RunID string   `json:"run_id"`
	Role  string   `json:"role"`
	env.Record
}

// StatusMessage is the retained JSON published on indicator changes.
type StatusMessage struct {
	RunID string    `json:"run_id"`
	Role  string    `json:"role"`
	State string    `json:"state"`
	Time  time.Time `json:"time"`
}

// MirrorConfig names the topics and identifies the station.
type MirrorConfig struct {
	TopicRecords string
	TopicStatus  string
	RunID        string
	Role         env.Role
}

// Mirror republishes records and indicator state on MQTT.
// Publish failures are logged and otherwise ignored.
type Mirror struct {
	client Publisher
	cfg    MirrorConfig
	now    func() time.Time
}

// NewMirror returns a mirror publishing through client.
func NewMirror(client Publisher, cfg MirrorConfig) *Mirror {
	return &Mirror{client: client, cfg: cfg, now: time.Now}
}

// ObserveRecord implements env.Observer.
func (m *Mirror) ObserveRecord(kind env.Kind, rec env.Record) {
	m.publish(m.cfg.TopicRecords, false, RecordMessage{
		Kind:   kind,
		RunID:  m.cfg.RunID,
		Role:   m.cfg.Role.String(),
		Record: rec,
	})
}

// PublishState publishes the indicator state, retained.
func (m *Mirror) PublishState(s indicator.State) {
	m.publish(m.cfg.TopicStatus, true, StatusMessage{
		RunID: m.cfg.RunID,
		Role:  m.cfg.Role.String(),
		State: s.String(),
		Time:  m.now(),
	})
}

func (m *Mirror) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshal for %s: %v", topic, err)
		return
	}
	token := m.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("telemetry: publish to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("telemetry: publish to %s: %v", topic, err)
	}
}

// ConnectMQTT connects to broker and keeps reconnecting in the background
// if the link drops later.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}
