// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pavilion_station/internal/app"
	"github.com/relabs-tech/pavilion_station/internal/config"
)

func main() {
	configPath := flag.String("config", "./station_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log.Printf("probe: sending one test frame via %s", config.Get().TransportVariant)
	if err := app.RunProbe(); err != nil {
		log.Fatalf("probe failed: %v", err)
	}
	log.Println("probe: LoRa connection successful")
}
