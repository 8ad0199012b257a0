// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/relabs-tech/pavilion_station/internal/env"
)

// Uplink transport variants.
const (
	TransportRAK811 = "rak811" // RAK811 modem driven over its serial AT interface
	TransportLMIC   = "lmic"   // external send_lora binary built on LMIC
)

// cronParser accepts six fields, seconds first.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Config holds all station configuration values.
type Config struct {
	// Identity
	DeviceRole       env.Role
	TransportVariant string

	// Cadence
	SamplePeriod        time.Duration
	PressureUpdateTicks int
	FlushSchedule       string // cron with seconds
	SendSchedule        string // cron with seconds
	JobMaxInstances     int
	DisabledPollDelay   time.Duration

	// Uplink retry protocol
	UplinkMaxRetries    int
	UplinkRetryInterval time.Duration
	UplinkRoleOffset    time.Duration

	// LED blink periods
	LEDIntervalIdle    time.Duration
	LEDIntervalMeasure time.Duration
	LEDIntervalSave    time.Duration
	LEDIntervalSend    time.Duration
	LEDIntervalStopped time.Duration
	LEDIntervalError   time.Duration

	// GPIO
	SwitchGPIO string
	LEDGPIO    string

	// I2C sensors
	I2CBus             string
	BMP280I2CAddr      uint16
	SHT31I2CAddr       uint16
	PyranometerDivider float64
	PyranometerGain    float64
	SensorsMock        bool

	// Anemometer
	AnemometerSerialPort string
	AnemometerBaudRate   uint

	// LoRa
	LoRaSerialPort string
	LoRaBaudRate   uint
	LoRaRegion     string
	LoRaAppEUI     string
	LoRaAppKey     string
	LoRaTxPower    int
	LoRaDataRate   int
	LMICExePath    string

	// Files
	DataDir string
	LogDir  string

	// MQTT mirror
	MQTTBroker   string
	MQTTClientID string
	TopicRecords string
	TopicStatus  string

	// Optional surfaces
	WebServerPort         int
	ArchiveDBPath         string
	DisplayEnabled        bool
	DisplayUpdateInterval time.Duration
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the KEY=VALUE configuration file and returns a Config.
// Keys not present keep their default.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromMap(values)
}

// FromMap builds a Config from already parsed key/value pairs.
func FromMap(values map[string]string) (*Config, error) {
	cfg := Default()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config key %s: %w", key, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.DeviceRole = env.RoleInterior
	c.TransportVariant = TransportRAK811

	c.SamplePeriod = time.Second
	c.PressureUpdateTicks = 3600
	c.FlushSchedule = "0 * * * * *"
	c.SendSchedule = "0 0,5,10,15,20,25,30,35,40,45,50,55 * * * *"
	c.JobMaxInstances = 5
	c.DisabledPollDelay = 5 * time.Second

	c.UplinkMaxRetries = 10
	c.UplinkRetryInterval = 20 * time.Second
	c.UplinkRoleOffset = 30 * time.Second

	c.LEDIntervalIdle = time.Second
	c.LEDIntervalMeasure = time.Second
	c.LEDIntervalSave = 500 * time.Millisecond
	c.LEDIntervalSend = 100 * time.Millisecond
	c.LEDIntervalStopped = 3 * time.Second
	c.LEDIntervalError = 200 * time.Millisecond

	c.SwitchGPIO = "GPIO21"
	c.LEDGPIO = "GPIO25"

	c.BMP280I2CAddr = 0x77
	c.SHT31I2CAddr = 0x44
	c.PyranometerDivider = 0.00001797
	c.PyranometerGain = 16

	c.AnemometerSerialPort = "/dev/ttyACM0"
	c.AnemometerBaudRate = 9600

	c.LoRaSerialPort = "/dev/ttyS0"
	c.LoRaBaudRate = 115200
	c.LoRaRegion = "EU868"
	c.LMICExePath = "./lora/send_lora"

	c.DataDir = "data"
	c.LogDir = "logs"

	c.MQTTClientID = "pavilion-station"
	c.TopicRecords = "pavilion/records"
	c.TopicStatus = "pavilion/status"

	c.DisplayUpdateInterval = time.Second
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Identity
	case "DEVICE_ROLE":
		c.DeviceRole, err = env.ParseRole(value)
	case "TRANSPORT_VARIANT":
		c.TransportVariant = strings.ToLower(value)

	// Cadence
	case "SAMPLE_PERIOD":
		c.SamplePeriod, err = parseDuration(value)
	case "PRESSURE_UPDATE_TICKS":
		c.PressureUpdateTicks, err = strconv.Atoi(value)
	case "FLUSH_SCHEDULE":
		c.FlushSchedule = value
	case "SEND_SCHEDULE":
		c.SendSchedule = value
	case "JOB_MAX_INSTANCES":
		c.JobMaxInstances, err = strconv.Atoi(value)
	case "DISABLED_POLL_DELAY":
		c.DisabledPollDelay, err = parseDuration(value)

	// Uplink
	case "UPLINK_MAX_RETRIES":
		c.UplinkMaxRetries, err = strconv.Atoi(value)
	case "UPLINK_RETRY_INTERVAL":
		c.UplinkRetryInterval, err = parseDuration(value)
	case "UPLINK_ROLE_OFFSET":
		c.UplinkRoleOffset, err = parseDuration(value)

	// LED
	case "LED_INTERVAL_IDLE":
		c.LEDIntervalIdle, err = parseDuration(value)
	case "LED_INTERVAL_MEASURE":
		c.LEDIntervalMeasure, err = parseDuration(value)
	case "LED_INTERVAL_SAVE":
		c.LEDIntervalSave, err = parseDuration(value)
	case "LED_INTERVAL_SEND":
		c.LEDIntervalSend, err = parseDuration(value)
	case "LED_INTERVAL_STOPPED":
		c.LEDIntervalStopped, err = parseDuration(value)
	case "LED_INTERVAL_ERROR":
		c.LEDIntervalError, err = parseDuration(value)

	// GPIO
	case "SWITCH_GPIO":
		c.SwitchGPIO = value
	case "LED_GPIO":
		c.LEDGPIO = value

	// I2C sensors
	case "I2C_BUS":
		c.I2CBus = value
	case "BMP280_I2C_ADDR":
		c.BMP280I2CAddr, err = parseAddr(value)
	case "SHT31_I2C_ADDR":
		c.SHT31I2CAddr, err = parseAddr(value)
	case "PYRANOMETER_DIVIDER":
		c.PyranometerDivider, err = strconv.ParseFloat(value, 64)
	case "PYRANOMETER_GAIN":
		c.PyranometerGain, err = strconv.ParseFloat(value, 64)
	case "SENSORS_MOCK":
		c.SensorsMock, err = strconv.ParseBool(value)

	// Anemometer
	case "ANEMOMETER_SERIAL_PORT":
		c.AnemometerSerialPort = value
	case "ANEMOMETER_BAUD_RATE":
		c.AnemometerBaudRate, err = parseUint(value)

	// LoRa
	case "LORA_SERIAL_PORT":
		c.LoRaSerialPort = value
	case "LORA_BAUD_RATE":
		c.LoRaBaudRate, err = parseUint(value)
	case "LORA_REGION":
		c.LoRaRegion = value
	case "LORA_APP_EUI":
		c.LoRaAppEUI = value
	case "LORA_APP_KEY":
		c.LoRaAppKey = value
	case "LORA_TX_POWER":
		c.LoRaTxPower, err = strconv.Atoi(value)
	case "LORA_DATA_RATE":
		c.LoRaDataRate, err = strconv.Atoi(value)
	case "LMIC_EXE_PATH":
		c.LMICExePath = value

	// Files
	case "DATA_DIR":
		c.DataDir = value
	case "LOG_DIR":
		c.LogDir = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_RECORDS":
		c.TopicRecords = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Optional surfaces
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = strconv.Atoi(value)
	case "ARCHIVE_DB_PATH":
		c.ArchiveDBPath = value
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = strconv.ParseBool(value)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseDuration(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	if err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}
	return nil
}

// validate checks ranges and schedule syntax.
func (c *Config) validate() error {
	if c.TransportVariant != TransportRAK811 && c.TransportVariant != TransportLMIC {
		return fmt.Errorf("TRANSPORT_VARIANT must be %s or %s, got %q", TransportRAK811, TransportLMIC, c.TransportVariant)
	}
	if c.SamplePeriod <= 0 {
		return fmt.Errorf("SAMPLE_PERIOD must be positive")
	}
	if c.PressureUpdateTicks <= 0 {
		return fmt.Errorf("PRESSURE_UPDATE_TICKS must be positive, got %d", c.PressureUpdateTicks)
	}
	if _, err := cronParser.Parse(c.FlushSchedule); err != nil {
		return fmt.Errorf("FLUSH_SCHEDULE %q: %w", c.FlushSchedule, err)
	}
	if _, err := cronParser.Parse(c.SendSchedule); err != nil {
		return fmt.Errorf("SEND_SCHEDULE %q: %w", c.SendSchedule, err)
	}
	if c.JobMaxInstances < 1 {
		return fmt.Errorf("JOB_MAX_INSTANCES must be at least 1, got %d", c.JobMaxInstances)
	}
	if c.UplinkMaxRetries < 0 {
		return fmt.Errorf("UPLINK_MAX_RETRIES must not be negative, got %d", c.UplinkMaxRetries)
	}
	if c.UplinkRetryInterval < 0 || c.UplinkRoleOffset < 0 || c.DisabledPollDelay < 0 {
		return fmt.Errorf("uplink and poll delays must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"LED_INTERVAL_IDLE":    c.LEDIntervalIdle,
		"LED_INTERVAL_MEASURE": c.LEDIntervalMeasure,
		"LED_INTERVAL_SAVE":    c.LEDIntervalSave,
		"LED_INTERVAL_SEND":    c.LEDIntervalSend,
		"LED_INTERVAL_STOPPED": c.LEDIntervalStopped,
		"LED_INTERVAL_ERROR":   c.LEDIntervalError,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.SwitchGPIO == "" || c.LEDGPIO == "" {
		return fmt.Errorf("SWITCH_GPIO and LED_GPIO are required")
	}
	if c.PyranometerGain <= 0 || c.PyranometerDivider <= 0 {
		return fmt.Errorf("PYRANOMETER_DIVIDER and PYRANOMETER_GAIN must be positive")
	}
	if c.TransportVariant == TransportRAK811 && c.LoRaSerialPort == "" {
		return fmt.Errorf("LORA_SERIAL_PORT is required for the %s transport", TransportRAK811)
	}
	if c.TransportVariant == TransportLMIC && c.LMICExePath == "" {
		return fmt.Errorf("LMIC_EXE_PATH is required for the %s transport", TransportLMIC)
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}

// parseDuration accepts Go durations ("20s", "500ms") or a bare number of seconds.
func parseDuration(value string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(value)
}

func parseAddr(value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	return uint16(addr), err
}

func parseUint(value string) (uint, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	return uint(v), err
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
