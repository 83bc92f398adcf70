package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MQTT.Broker, test.ShouldEqual, "tcp://localhost:1883")
	test.That(t, cfg.MQTT.TopicHeading, test.ShouldEqual, "compass/heading")
	test.That(t, cfg.SampleInterval(), test.ShouldEqual, 60*time.Millisecond)
	test.That(t, cfg.Sensors.MagI2CAddr, test.ShouldEqual, uint16(0x0D))
	test.That(t, cfg.NMEA.Talker, test.ShouldEqual, "HC")
	test.That(t, cfg.Logging.Level, test.ShouldEqual, "info")
	test.That(t, cfg.Background, test.ShouldBeFalse)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
mqtt:
  enabled: true
  broker: tcp://broker:1883
  qos: 1
sensors:
  mock: true
  sample_interval_ms: 20
  accel_range: 2
web:
  enabled: true
  addr: 127.0.0.1:9000
display:
  update_interval_ms: 500
logging:
  level: debug
background: true
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MQTT.Enabled, test.ShouldBeTrue)
	test.That(t, cfg.MQTT.Broker, test.ShouldEqual, "tcp://broker:1883")
	test.That(t, cfg.MQTT.QoS, test.ShouldEqual, byte(1))
	test.That(t, cfg.MQTT.TopicBackground, test.ShouldEqual, "compass/background")
	test.That(t, cfg.Sensors.Mock, test.ShouldBeTrue)
	test.That(t, cfg.SampleInterval(), test.ShouldEqual, 20*time.Millisecond)
	test.That(t, cfg.Sensors.AccelRange, test.ShouldEqual, byte(2))
	test.That(t, cfg.Web.Addr, test.ShouldEqual, "127.0.0.1:9000")
	test.That(t, cfg.DisplayInterval(), test.ShouldEqual, 500*time.Millisecond)
	test.That(t, cfg.Logging.Level, test.ShouldEqual, "debug")
	test.That(t, cfg.Background, test.ShouldBeTrue)
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, doc := range []string{
		"mqtt: {qos: 3}",
		"sensors: {accel_range: 4}",
		"sensors: {mag_range: 2}",
		"sensors: {sample_interval_ms: -5}",
		"nmea: {talker: HCX}",
		"logging: {level: loud}",
		"mqtt: [",
	} {
		_, err := Parse([]byte(doc))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestLoadAndGlobal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)

	path := filepath.Join(t.TempDir(), "compass.yaml")
	test.That(t, os.WriteFile(path, []byte("web: {enabled: true}\n"), 0o644), test.ShouldBeNil)

	test.That(t, InitGlobal(path), test.ShouldBeNil)
	test.That(t, Get(), test.ShouldNotBeNil)
	test.That(t, Get().Web.Enabled, test.ShouldBeTrue)

	// later calls keep the first configuration
	test.That(t, InitGlobal("does-not-exist.yaml"), test.ShouldBeNil)
	test.That(t, Get().Web.Enabled, test.ShouldBeTrue)
}
