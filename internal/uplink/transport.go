// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uplink

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransmit is wrapped by every non-zero transport status.
var ErrTransmit = errors.New("uplink: transmit failed")

// Transport delivers one encoded frame. A nil error means the modem
// reported success (status 0).
type Transport interface {
	Transmit(ctx context.Context, frame Frame) error
	Name() string
}

// StatusError carries the non-zero status a transport reported.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("uplink: status %d", e.Status)
	}
	return fmt.Sprintf("uplink: status %d: %s", e.Status, e.Detail)
}

func (e *StatusError) Unwrap() error { return ErrTransmit }
