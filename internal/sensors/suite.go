// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/pavilion_station/internal/config"
)

// Suite is every sensor read the collector needs. Each call either returns
// a physical value or fails; none of them retry.
type Suite interface {
	// ReadAmbientPressure returns station pressure in hPa and the derived altitude in m.
	ReadAmbientPressure() (pressure, altitude float64, err error)
	// SetAnemometerPressure pushes a pressure calibration value to the anemometer.
	SetAnemometerPressure(pressure string) error
	ReadRadiantTemperature() (float64, error)
	ReadAirTemperatureAndHumidity() (temp, humidity float64, err error)
	ReadWindSpeed() (float64, error)
	ReadSolarRadiation() (float64, error)
}

// Hardware is the Suite backed by the real I2C and serial devices.
// Devices are opened on first use; a device that fails to open is retried
// on the next read so a reconnected sensor comes back without a restart.
type Hardware struct {
	cfg *config.Config

	mu   sync.Mutex
	bus  i2c.BusCloser
	bmp  *bmp280
	mcp  *radiantThermometer
	sht  *SHT31
	pyr  *Pyranometer
	wind *Anemometer
}

// NewHardware initializes the periph host and opens the I2C bus.
// Individual sensors are probed lazily.
func NewHardware(cfg *config.Config) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", cfg.I2CBus, err)
	}

	h := &Hardware{
		cfg:  cfg,
		bus:  bus,
		wind: NewAnemometer(cfg.AnemometerSerialPort, cfg.AnemometerBaudRate),
	}

	// Probe everything once so a missing device shows up in the log at boot.
	if _, err := h.bmpDev(); err != nil {
		log.Printf("sensors: %v", err)
	}
	if _, err := h.mcpDev(); err != nil {
		log.Printf("sensors: %v", err)
	}
	if _, err := h.shtDev(); err != nil {
		log.Printf("sensors: %v", err)
	}
	if cfg.DeviceRole.ReadsRadiation() {
		if _, err := h.pyrDev(); err != nil {
			log.Printf("sensors: %v", err)
		}
	}
	return h, nil
}

// Close releases the I2C bus.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pyr != nil {
		h.pyr.Halt()
	}
	return h.bus.Close()
}

func (h *Hardware) bmpDev() (*bmp280, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bmp == nil {
		dev, err := openBMP280(h.bus, h.cfg.BMP280I2CAddr)
		if err != nil {
			return nil, err
		}
		h.bmp = dev
	}
	return h.bmp, nil
}

func (h *Hardware) mcpDev() (*radiantThermometer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mcp == nil {
		dev, err := openRadiantThermometer(h.bus)
		if err != nil {
			return nil, err
		}
		h.mcp = dev
	}
	return h.mcp, nil
}

func (h *Hardware) shtDev() (*SHT31, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sht == nil {
		h.sht = NewSHT31(h.bus, h.cfg.SHT31I2CAddr)
	}
	return h.sht, nil
}

func (h *Hardware) pyrDev() (*Pyranometer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pyr == nil {
		dev, err := OpenPyranometer(h.bus, h.cfg.PyranometerDivider, h.cfg.PyranometerGain)
		if err != nil {
			return nil, err
		}
		h.pyr = dev
	}
	return h.pyr, nil
}

func (h *Hardware) ReadAmbientPressure() (float64, float64, error) {
	dev, err := h.bmpDev()
	if err != nil {
		return 0, 0, err
	}
	return dev.PressureAndAltitude()
}

func (h *Hardware) SetAnemometerPressure(pressure string) error {
	return h.wind.SetPressure(pressure)
}

func (h *Hardware) ReadRadiantTemperature() (float64, error) {
	dev, err := h.mcpDev()
	if err != nil {
		return 0, err
	}
	return dev.Temperature()
}

func (h *Hardware) ReadAirTemperatureAndHumidity() (float64, float64, error) {
	dev, err := h.shtDev()
	if err != nil {
		return 0, 0, err
	}
	return dev.TemperatureAndHumidity()
}

func (h *Hardware) ReadWindSpeed() (float64, error) {
	return h.wind.Measure()
}

func (h *Hardware) ReadSolarRadiation() (float64, error) {
	dev, err := h.pyrDev()
	if err != nil {
		return 0, err
	}
	return dev.Radiation()
}
