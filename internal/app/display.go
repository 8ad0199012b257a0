// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	panelWidth  = 128
	panelHeight = 64
	lineHeight  = 13
)

// runDisplay drives the SSD1306 status panel on busName until ctx is done.
// The periph host must already be initialized.
func runDisplay(ctx context.Context, busName string, board *StatusBoard, interval time.Duration) error {
	bus, err := i2creg.Open(busName)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus for display: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: panel initialized")

	if err := drawLines(dev, splashLines(board.Snapshot())); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := drawLines(dev, statusLines(board.Snapshot())); err != nil {
				log.Printf("display: error updating panel: %v", err)
			}
		}
	}
}

func splashLines(s StatusSnapshot) []string {
	return []string{"", "Pavilion station", strings.ToUpper(s.Role), "starting..."}
}

// statusLines lays out the panel: state, then the last logged record.
// Four lines of basicfont fill the 64 px height.
func statusLines(s StatusSnapshot) []string {
	lines := []string{strings.ToUpper(s.Role + " " + s.State)}
	if s.LastLog == nil {
		return append(lines, "", "Waiting...")
	}
	r := s.LastLog
	lines = append(lines,
		fmt.Sprintf("T:%5.1f G:%5.1f", r.Temperature, r.Radiant),
		fmt.Sprintf("H:%5.1f%% W:%4.1f", r.Humidity, r.WindSpeed),
		fmt.Sprintf("R:%6.1f %s", r.Radiation, r.Time.Format("15:04")),
	)
	return lines
}

// renderLines draws up to four text lines on a blank 128x64 frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, panelWidth, panelHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if (i+1)*lineHeight > panelHeight {
			break
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

func drawLines(dev display.Drawer, lines []string) error {
	return dev.Draw(dev.Bounds(), renderLines(lines), image.Point{})
}
