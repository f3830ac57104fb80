package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mecanum.yaml")
	if err := ioutil.WriteFile(path, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Threshold != 0.1 {
		t.Errorf("Expected default threshold 0.1, got %v", cfg.Threshold)
	}
	pins := cfg.Actuators.Wheels.ByID()
	if pins[wheel.LeftFront].Forward != 27 || pins[wheel.LeftFront].Backward != 17 {
		t.Errorf("Unexpected left front pins %+v", pins[wheel.LeftFront])
	}
	if pins[wheel.RightBack].Forward != 12 || pins[wheel.RightBack].Backward != 16 {
		t.Errorf("Unexpected right back pins %+v", pins[wheel.RightBack])
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	os.Unsetenv("JOYSTICK_DEVICE")
	os.Unsetenv("MQTT_BROKER")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Joystick.Device != "/dev/input/js0" {
		t.Errorf("Expected default joystick, got %v", cfg.Source.Joystick.Device)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
threshold: 0.25
command_timeout: 500ms
actuators:
  driver: picobldc
  picobldc:
    speed: 1000
    watchdog: 2s
    mux_port: 7
source:
  kind: mqtt
  mqtt:
    broker: tcp://robot:1883
    topic: robot/cmd_vel
    qos: 1
telemetry:
  listen: ":8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != 0.25 {
		t.Errorf("Threshold = %v", cfg.Threshold)
	}
	if cfg.CommandTimeout != 500*time.Millisecond {
		t.Errorf("CommandTimeout = %v", cfg.CommandTimeout)
	}
	p := cfg.Actuators.PicoBLDC
	if cfg.Actuators.Driver != DriverPicoBLDC || p.Speed != 1000 || p.Watchdog != 2*time.Second || p.MuxPort != 7 {
		t.Errorf("Unexpected picobldc config %+v", p)
	}
	if p.Bus != "/dev/i2c-1" || p.Addr != 0x42 {
		t.Errorf("Unset picobldc fields should keep their defaults: %+v", p)
	}
	if cfg.Source.Kind != SourceMQTT || cfg.Source.MQTT.Topic != "robot/cmd_vel" || cfg.Source.MQTT.QoS != 1 {
		t.Errorf("Unexpected source config %+v", cfg.Source)
	}
	if cfg.Telemetry.Listen != ":8080" {
		t.Errorf("Telemetry listen = %q", cfg.Telemetry.Listen)
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("JOYSTICK_DEVICE", "/dev/input/js1")
	os.Setenv("MQTT_BROKER", "tcp://other:1883")
	defer os.Unsetenv("JOYSTICK_DEVICE")
	defer os.Unsetenv("MQTT_BROKER")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Joystick.Device != "/dev/input/js1" {
		t.Errorf("JOYSTICK_DEVICE not applied: %v", cfg.Source.Joystick.Device)
	}
	if cfg.Source.MQTT.Broker != "tcp://other:1883" {
		t.Errorf("MQTT_BROKER not applied: %v", cfg.Source.MQTT.Broker)
	}
}

func TestValidateRejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative threshold", func(c *Config) { c.Threshold = -0.1 }},
		{"negative timeout", func(c *Config) { c.CommandTimeout = -time.Second }},
		{"unknown driver", func(c *Config) { c.Actuators.Driver = "pwm" }},
		{"unknown backend", func(c *Config) { c.Actuators.GPIO.Backend = "sysfs" }},
		{"duplicate pin", func(c *Config) { c.Actuators.Wheels.RightBack.Forward = 27 }},
		{"pin out of range", func(c *Config) { c.Actuators.Wheels.LeftBack.Backward = 54 }},
		{"unknown source", func(c *Config) { c.Source.Kind = "ros" }},
		{"zero speed", func(c *Config) {
			c.Actuators.Driver = DriverPicoBLDC
			c.Actuators.PicoBLDC.Speed = 0
		}},
		{"bad qos", func(c *Config) {
			c.Source.Kind = SourceMQTT
			c.Source.MQTT.QoS = 3
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "treshold: 0.2\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for misspelt key")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(writeConfig(t, string(data)))
	if err != nil {
		t.Fatalf("Marshalled config does not load: %v\n%s", err, data)
	}
	if loaded.Actuators != cfg.Actuators {
		t.Errorf("Actuators changed on round trip: %+v != %+v", loaded.Actuators, cfg.Actuators)
	}
}
