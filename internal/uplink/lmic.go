// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uplink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// LMIC runs the external send_lora binary, which drives the radio through
// the LMIC C library. The hex frame is its only argument and the exit code
// is the transmit status.
type LMIC struct {
	path string
}

// NewLMIC returns a transport running the binary at path.
func NewLMIC(path string) *LMIC {
	return &LMIC{path: path}
}

func (l *LMIC) Name() string { return "lmic" }

// Transmit runs the binary once and waits for it to exit.
func (l *LMIC) Transmit(ctx context.Context, frame Frame) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, l.path, frame.Hex())
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	detail := strings.TrimSpace(out.String())
	if detail != "" {
		log.Printf("uplink: lmic: %s", detail)
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &StatusError{Status: exitErr.ExitCode(), Detail: detail}
	}
	return fmt.Errorf("run %s: %w", l.path, err)
}
