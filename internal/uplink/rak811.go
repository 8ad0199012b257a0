// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uplink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// RAK811Config holds the LoRaWAN OTAA parameters of the modem.
type RAK811Config struct {
	Port     string
	BaudRate uint
	Region   string
	AppEUI   string
	AppKey   string
	TxPower  int
	DataRate int
}

// RAK811 drives a RAK811 LoRa modem (v3 firmware) over its serial AT
// interface. Every transmission opens the port, configures and joins,
// sends, then closes the port again.
type RAK811 struct {
	cfg  RAK811Config
	open func() (io.ReadWriteCloser, error)
}

// NewRAK811 returns a RAK811 transport for cfg.
func NewRAK811(cfg RAK811Config) *RAK811 {
	opts := serial.OpenOptions{
		PortName:              cfg.Port,
		BaudRate:              cfg.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: 20000, // ms; join replies can take several seconds
	}
	return &RAK811{
		cfg:  cfg,
		open: func() (io.ReadWriteCloser, error) { return serial.Open(opts) },
	}
}

func (r *RAK811) Name() string { return "rak811" }

// Transmit runs one configure/join/send session.
func (r *RAK811) Transmit(ctx context.Context, frame Frame) error {
	port, err := r.open()
	if err != nil {
		return fmt.Errorf("rak811 open %s: %w", r.cfg.Port, err)
	}
	defer port.Close()

	m := &atSession{port: port, reader: bufio.NewReader(port)}

	commands := []string{
		"at+set_config=lora:work_mode:0",
		"at+set_config=lora:join_mode:0",
		"at+set_config=lora:region:" + r.cfg.Region,
		"at+set_config=lora:app_eui:" + r.cfg.AppEUI,
		"at+set_config=lora:app_key:" + r.cfg.AppKey,
		fmt.Sprintf("at+set_config=lora:tx_power:%d", r.cfg.TxPower),
		"at+join",
		fmt.Sprintf("at+set_config=lora:dr:%d", r.cfg.DataRate),
		"at+send=lora:1:" + frame.Hex(),
	}
	for _, cmd := range commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.command(cmd); err != nil {
			return err
		}
		if cmd == "at+join" {
			log.Printf("uplink: rak811 joined")
		}
	}
	return nil
}

type atSession struct {
	port   io.Writer
	reader *bufio.Reader
}

// command writes cmd and reads lines until the modem answers OK or ERROR.
// Banner and event lines in between are ignored.
func (s *atSession) command(cmd string) error {
	if _, err := io.WriteString(s.port, cmd+"\r\n"); err != nil {
		return fmt.Errorf("rak811 write %q: %w", cmd, err)
	}
	for {
		line, err := s.reader.ReadString('\n')
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "OK"):
			return nil
		case strings.HasPrefix(line, "ERROR"):
			return &StatusError{Status: atErrorCode(line), Detail: cmd + ": " + line}
		}
		if err != nil {
			return fmt.Errorf("rak811 %q: %w", cmd, err)
		}
	}
}

// atErrorCode extracts n from "ERROR: n", falling back to -1.
func atErrorCode(line string) int {
	var code int
	if _, err := fmt.Sscanf(strings.TrimPrefix(line, "ERROR"), ": %d", &code); err != nil || code == 0 {
		return -1
	}
	return code
}
