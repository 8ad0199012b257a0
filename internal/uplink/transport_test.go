// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uplink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modemPort answers each AT command with the next scripted reply.
type modemPort struct {
	replies []string
	written bytes.Buffer
	pending bytes.Buffer
	closed  bool
}

func (m *modemPort) Write(p []byte) (int, error) {
	m.written.Write(p)
	if bytes.HasSuffix(p, []byte("\r\n")) && len(m.replies) > 0 {
		m.pending.WriteString(m.replies[0])
		m.replies = m.replies[1:]
	}
	return len(p), nil
}

func (m *modemPort) Read(p []byte) (int, error) {
	if m.pending.Len() == 0 {
		return 0, io.EOF
	}
	return m.pending.Read(p)
}

func (m *modemPort) Close() error {
	m.closed = true
	return nil
}

func testRAK811(port *modemPort) *RAK811 {
	r := NewRAK811(RAK811Config{
		Port:    "/dev/null",
		Region:  "EU868",
		AppEUI:  "70B3D50000000000",
		AppKey:  "00112233445566778899AABBCCDDEEFF",
		TxPower: 0,
	})
	r.open = func() (io.ReadWriteCloser, error) { return port, nil }
	return r
}

func TestRAK811Session(t *testing.T) {
	port := &modemPort{replies: []string{
		"UART1 work mode: RUI_UART_NORMAL\r\nOK\r\n",
		"OK\r\n",
		"OK\r\n",
		"OK\r\n",
		"OK\r\n",
		"OK\r\n",
		"OK Join Success\r\n",
		"OK\r\n",
		"OK\r\n",
	}}
	frame := Frame{Timestamp: 0x01020304, Radiation: 15, Temperature: 21, Radiant: 21, Humidity: 51, WindSpeed: 1.5}

	require.NoError(t, testRAK811(port).Transmit(context.Background(), frame))

	lines := strings.Split(strings.TrimSuffix(port.written.String(), "\r\n"), "\r\n")
	assert.Equal(t, []string{
		"at+set_config=lora:work_mode:0",
		"at+set_config=lora:join_mode:0",
		"at+set_config=lora:region:EU868",
		"at+set_config=lora:app_eui:70B3D50000000000",
		"at+set_config=lora:app_key:00112233445566778899AABBCCDDEEFF",
		"at+set_config=lora:tx_power:0",
		"at+join",
		"at+set_config=lora:dr:0",
		"at+send=lora:1:010102030405dc0834083413ec05dc",
	}, lines)
	assert.True(t, port.closed)
}

func TestRAK811JoinError(t *testing.T) {
	port := &modemPort{replies: []string{
		"OK\r\n", "OK\r\n", "OK\r\n", "OK\r\n", "OK\r\n", "OK\r\n",
		"ERROR: 99\r\n",
	}}

	err := testRAK811(port).Transmit(context.Background(), Frame{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransmit)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, 99, status.Status)
	assert.Contains(t, status.Detail, "at+join")
	assert.NotContains(t, port.written.String(), "at+send")
}

func TestRAK811Silent(t *testing.T) {
	port := &modemPort{}
	err := testRAK811(port).Transmit(context.Background(), Frame{})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRAK811OpenFailure(t *testing.T) {
	r := testRAK811(nil)
	r.open = func() (io.ReadWriteCloser, error) { return nil, os.ErrNotExist }
	assert.ErrorIs(t, r.Transmit(context.Background(), Frame{}), os.ErrNotExist)
}

func TestAtErrorCode(t *testing.T) {
	assert.Equal(t, 86, atErrorCode("ERROR: 86"))
	assert.Equal(t, -1, atErrorCode("ERROR"))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "send_lora")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestLMICSuccess(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "arg")
	path := writeScript(t, "echo \"$1\" > "+out+"\nexit 0\n")

	frame := Frame{Timestamp: 0x01020304, Radiation: 15, Temperature: 21, Radiant: 21, Humidity: 51, WindSpeed: 1.5}
	require.NoError(t, NewLMIC(path).Transmit(context.Background(), frame))

	arg, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, frame.Hex(), strings.TrimSpace(string(arg)))
}

func TestLMICExitStatus(t *testing.T) {
	path := writeScript(t, "echo no gateway\nexit 3\n")

	err := NewLMIC(path).Transmit(context.Background(), Frame{})
	require.Error(t, err)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, 3, status.Status)
	assert.Equal(t, "no gateway", status.Detail)
	assert.ErrorIs(t, err, ErrTransmit)
}

func TestLMICMissingBinary(t *testing.T) {
	err := NewLMIC(filepath.Join(t.TempDir(), "missing")).Transmit(context.Background(), Frame{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransmit)
}
