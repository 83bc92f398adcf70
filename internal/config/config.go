package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// MQTTConfig configures the broker connection and topics.
type MQTTConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Broker            string `yaml:"broker"`
	ClientIDProducer  string `yaml:"client_id_producer"`
	ClientIDConsole   string `yaml:"client_id_console"`
	TopicHeading      string `yaml:"topic_heading"`
	TopicBackground   string `yaml:"topic_background"`
	TopicNotification string `yaml:"topic_notification"`
	QoS               byte   `yaml:"qos"`
}

// SensorsConfig configures the sensor hardware and polling.
type SensorsConfig struct {
	Mock bool `yaml:"mock"`

	// SampleIntervalMS is the polling period per sensor in milliseconds.
	SampleIntervalMS int `yaml:"sample_interval_ms"`

	AccelSPIDevice string `yaml:"accel_spi_device"`
	AccelCSPin     string `yaml:"accel_cs_pin"`
	// AccelRange: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	AccelRange byte `yaml:"accel_range"`

	MagI2CBus  string `yaml:"mag_i2c_bus"`
	MagI2CAddr uint16 `yaml:"mag_i2c_addr"`
	// MagRange: 0=±2G, 1=±8G
	MagRange byte `yaml:"mag_range"`

	// MockRateDegPerSec is how fast the mock device turns.
	MockRateDegPerSec float64 `yaml:"mock_rate_deg_per_sec"`
}

// WebConfig configures the HTTP API.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// NMEAConfig configures the NMEA 0183 serial output.
type NMEAConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SerialPort string `yaml:"serial_port"`
	BaudRate   uint   `yaml:"baud_rate"`
	Talker     string `yaml:"talker"`
}

// DisplayConfig configures the SSD1306 OLED.
type DisplayConfig struct {
	Enabled          bool   `yaml:"enabled"`
	I2CBus           string `yaml:"i2c_bus"`
	UpdateIntervalMS int    `yaml:"update_interval_ms"`
}

// LoggingConfig selects the zap configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config holds all application configuration values.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Sensors SensorsConfig `yaml:"sensors"`
	Web     WebConfig     `yaml:"web"`
	NMEA    NMEAConfig    `yaml:"nmea"`
	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`

	// Background starts the service with the persistent notification shown.
	Background bool `yaml:"background"`
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the YAML configuration file and returns a validated Config.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults for omitted values and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientIDProducer == "" {
		c.MQTT.ClientIDProducer = "compass-producer"
	}
	if c.MQTT.ClientIDConsole == "" {
		c.MQTT.ClientIDConsole = "compass-console"
	}
	if c.MQTT.TopicHeading == "" {
		c.MQTT.TopicHeading = "compass/heading"
	}
	if c.MQTT.TopicBackground == "" {
		c.MQTT.TopicBackground = "compass/background"
	}
	if c.MQTT.TopicNotification == "" {
		c.MQTT.TopicNotification = "compass/notification"
	}
	if c.Sensors.SampleIntervalMS == 0 {
		// roughly the UI-tier rate of mobile sensor frameworks
		c.Sensors.SampleIntervalMS = 60
	}
	if c.Sensors.AccelSPIDevice == "" {
		c.Sensors.AccelSPIDevice = "/dev/spidev0.0"
	}
	if c.Sensors.AccelCSPin == "" {
		c.Sensors.AccelCSPin = "8"
	}
	if c.Sensors.MagI2CAddr == 0 {
		c.Sensors.MagI2CAddr = 0x0D
	}
	if c.Sensors.MockRateDegPerSec == 0 {
		c.Sensors.MockRateDegPerSec = 30
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.NMEA.SerialPort == "" {
		c.NMEA.SerialPort = "/dev/serial0"
	}
	if c.NMEA.BaudRate == 0 {
		c.NMEA.BaudRate = 4800
	}
	if c.NMEA.Talker == "" {
		c.NMEA.Talker = "HC"
	}
	if c.Display.UpdateIntervalMS == 0 {
		c.Display.UpdateIntervalMS = 200
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// validate checks value ranges.
func (c *Config) validate() error {
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0-2, got %d", c.MQTT.QoS)
	}
	if c.Sensors.SampleIntervalMS < 0 {
		return fmt.Errorf("sensors.sample_interval_ms must be positive, got %d", c.Sensors.SampleIntervalMS)
	}
	if c.Sensors.AccelRange > 3 {
		return fmt.Errorf("sensors.accel_range must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", c.Sensors.AccelRange)
	}
	if c.Sensors.MagRange > 1 {
		return fmt.Errorf("sensors.mag_range must be 0-1 (0=±2G, 1=±8G), got %d", c.Sensors.MagRange)
	}
	if len(c.NMEA.Talker) != 2 {
		return fmt.Errorf("nmea.talker must be two characters, got %q", c.NMEA.Talker)
	}
	if c.Display.UpdateIntervalMS < 0 {
		return fmt.Errorf("display.update_interval_ms must be positive, got %d", c.Display.UpdateIntervalMS)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

// SampleInterval returns the sensor polling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sensors.SampleIntervalMS) * time.Millisecond
}

// DisplayInterval returns the OLED refresh period.
func (c *Config) DisplayInterval() time.Duration {
	return time.Duration(c.Display.UpdateIntervalMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
