// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), Config{
		Source: filepath.Join(t.TempDir(), "archive.db"),
		RunID:  "run-1",
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestRecentByKind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.ObserveRecord(env.KindLog, env.Record{
			Time:        base.Add(time.Duration(i) * time.Minute),
			Temperature: 20 + float64(i),
			Samples:     60,
		})
	}
	s.ObserveRecord(env.KindUplink, env.Record{Time: base, Radiation: 640, WindSpeed: -1, Samples: 300})

	logs, err := s.Recent(ctx, env.KindLog, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 22.0, logs[0].Temperature)
	assert.Equal(t, 21.0, logs[1].Temperature)
	assert.True(t, logs[0].Time.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, env.KindLog, logs[0].Kind)

	ups, err := s.Recent(ctx, env.KindUplink, 10)
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, 640.0, ups[0].Radiation)
	assert.Equal(t, -1.0, ups[0].WindSpeed)
	assert.Equal(t, 300, ups[0].Samples)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	s, err := New(ctx, Config{Source: path, RunID: "a"})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, env.KindLog, env.Record{Time: time.Unix(1000, 0), Humidity: 40}))
	s.Close()

	s, err = New(ctx, Config{Source: path, RunID: "b"})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, env.KindLog, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 40.0, got[0].Humidity)
}
