// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pavilion_station/internal/env"
	"github.com/relabs-tech/pavilion_station/internal/indicator"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	msgs []published
	err  error
}

func (f *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{err: f.err}
}

func TestMirrorPublishesRecords(t *testing.T) {
	client := &fakeClient{}
	m := NewMirror(client, MirrorConfig{
		TopicRecords: "pavilion/records",
		TopicStatus:  "pavilion/status",
		RunID:        "run-1",
		Role:         env.RoleExterior,
	})

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m.ObserveRecord(env.KindUplink, env.Record{Time: at, Temperature: 21, Humidity: 51, Samples: 300})

	require.Len(t, client.msgs, 1)
	msg := client.msgs[0]
	assert.Equal(t, "pavilion/records", msg.topic)
	assert.False(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "uplink", got["kind"])
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "exterior", got["role"])
	assert.Equal(t, 21.0, got["temp_c"])
	assert.Equal(t, 300.0, got["samples"])
}

func TestMirrorPublishesRetainedState(t *testing.T) {
	client := &fakeClient{}
	m := NewMirror(client, MirrorConfig{TopicStatus: "pavilion/status", RunID: "run-1"})
	m.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }

	m.PublishState(indicator.Sending)

	require.Len(t, client.msgs, 1)
	assert.True(t, client.msgs[0].retained)

	var got StatusMessage
	require.NoError(t, json.Unmarshal(client.msgs[0].payload, &got))
	assert.Equal(t, "sending", got.State)
	assert.Equal(t, "interior", got.Role)
}

func TestMirrorSwallowsPublishErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	m := NewMirror(client, MirrorConfig{TopicRecords: "r"})
	assert.NotPanics(t, func() { m.ObserveRecord(env.KindLog, env.Record{}) })
	assert.Len(t, client.msgs, 1)
}
