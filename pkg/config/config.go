// Package config loads the controller's YAML configuration.
package config

import (
	"io/ioutil"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/direction"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/memgpio"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

const DefaultPath = "/cfg/mecanum.yaml"

const (
	DriverGPIO     = "gpio"
	DriverPicoBLDC = "picobldc"
	DriverDummy    = "dummy"

	BackendPeriph = "periph"
	BackendRPIO   = "rpio"
	BackendDevmem = "devmem"

	SourceJoystick = "joystick"
	SourceMQTT     = "mqtt"
)

type Config struct {
	// Threshold is the deadband applied to every wheel speed.
	Threshold float64 `yaml:"threshold"`
	// CommandTimeout stops the wheels if the command source goes quiet.  Zero
	// disables it.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	LogLevel       string        `yaml:"log_level"`

	Actuators Actuators `yaml:"actuators"`
	Source    Source    `yaml:"source"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Actuators struct {
	Driver   string   `yaml:"driver"`
	GPIO     GPIO     `yaml:"gpio"`
	PicoBLDC PicoBLDC `yaml:"picobldc"`
	Wheels   Wheels   `yaml:"wheels"`
	// HealthInterval is how often the motor driver's health is logged.
	HealthInterval time.Duration `yaml:"health_interval"`
}

type GPIO struct {
	Backend string `yaml:"backend"`
	Device  string `yaml:"device"`
	Base    int64  `yaml:"base"`
}

type PicoBLDC struct {
	Bus      string        `yaml:"bus"`
	Addr     int           `yaml:"addr"`
	Speed    int16         `yaml:"speed"`
	Watchdog time.Duration `yaml:"watchdog"`
	// MuxPort selects an I2C multiplexer port before talking to the board;
	// -1 when the board is directly on the bus.
	MuxPort int `yaml:"mux_port"`
	MuxAddr int `yaml:"mux_addr"`
}

type Wheel struct {
	Forward  int  `yaml:"forward"`
	Backward int  `yaml:"backward"`
	Invert   bool `yaml:"invert"`
}

type Wheels struct {
	LeftFront  Wheel `yaml:"left_front"`
	RightFront Wheel `yaml:"right_front"`
	LeftBack   Wheel `yaml:"left_back"`
	RightBack  Wheel `yaml:"right_back"`
}

// ByID returns the wheel settings indexed by wheel ID.
func (w Wheels) ByID() [wheel.NumWheels]Wheel {
	var out [wheel.NumWheels]Wheel
	out[wheel.LeftFront] = w.LeftFront
	out[wheel.RightFront] = w.RightFront
	out[wheel.LeftBack] = w.LeftBack
	out[wheel.RightBack] = w.RightBack
	return out
}

type Source struct {
	Kind     string   `yaml:"kind"`
	Joystick Joystick `yaml:"joystick"`
	MQTT     MQTT     `yaml:"mqtt"`
}

type Joystick struct {
	Device string  `yaml:"device"`
	Expo   float64 `yaml:"expo"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type Telemetry struct {
	// Listen is the address of the websocket telemetry server, empty to
	// disable it.
	Listen string `yaml:"listen"`
}

// Default returns the configuration of the reference robot: bare GPIO H-bridges
// on a Raspberry Pi driven from a joystick.
func Default() Config {
	return Config{
		Threshold: direction.DefaultThreshold,
		LogLevel:  "info",
		Actuators: Actuators{
			Driver: DriverGPIO,
			GPIO: GPIO{
				Backend: BackendPeriph,
				Device:  "/dev/mem",
				Base:    memgpio.DefaultBase,
			},
			PicoBLDC: PicoBLDC{
				Bus:      "/dev/i2c-1",
				Addr:     0x42,
				Speed:    0x2000,
				Watchdog: time.Second,
				MuxPort:  -1,
				MuxAddr:  0x70,
			},
			// The front motors are wired with forward/backward swapped.
			Wheels: Wheels{
				LeftFront:  Wheel{Forward: 27, Backward: 17},
				RightFront: Wheel{Forward: 20, Backward: 26},
				LeftBack:   Wheel{Forward: 13, Backward: 19},
				RightBack:  Wheel{Forward: 12, Backward: 16},
			},
			HealthInterval: 10 * time.Second,
		},
		Source: Source{
			Kind: SourceJoystick,
			Joystick: Joystick{
				Device: "/dev/input/js0",
				Expo:   1.6,
			},
			MQTT: MQTT{
				Broker:   "tcp://localhost:1883",
				Topic:    "cmd_vel",
				ClientID: "mecanum-controller",
			},
		},
	}
}

// Load reads the file at path over the defaults.  A missing file is not an
// error: the defaults are used as they are.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv applies the environment overrides.
func (c *Config) ApplyEnv() {
	if dev := os.Getenv("JOYSTICK_DEVICE"); dev != "" {
		c.Source.Joystick.Device = dev
	}
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		c.Source.MQTT.Broker = broker
	}
}

func (c *Config) Validate() error {
	if err := direction.ValidateThreshold(c.Threshold); err != nil {
		return err
	}
	if c.CommandTimeout < 0 {
		return errors.Errorf("command_timeout must not be negative, got %v", c.CommandTimeout)
	}

	switch c.Actuators.Driver {
	case DriverGPIO:
		if err := c.validateGPIO(); err != nil {
			return err
		}
	case DriverPicoBLDC:
		p := c.Actuators.PicoBLDC
		if p.Speed == 0 || p.Speed == math.MinInt16 {
			return errors.Errorf("picobldc speed %d is not usable", p.Speed)
		}
		if p.MuxPort >= 8 {
			return errors.Errorf("picobldc mux_port %d out of range", p.MuxPort)
		}
	case DriverDummy:
	default:
		return errors.Errorf("unknown actuator driver %q", c.Actuators.Driver)
	}

	switch c.Source.Kind {
	case SourceJoystick:
		if c.Source.Joystick.Expo <= 0 {
			return errors.Errorf("joystick expo must be positive, got %v", c.Source.Joystick.Expo)
		}
	case SourceMQTT:
		if c.Source.MQTT.Topic == "" {
			return errors.New("mqtt topic must be set")
		}
		if c.Source.MQTT.QoS > 2 {
			return errors.Errorf("mqtt qos %d out of range", c.Source.MQTT.QoS)
		}
	default:
		return errors.Errorf("unknown command source %q", c.Source.Kind)
	}
	return nil
}

func (c *Config) validateGPIO() error {
	switch c.Actuators.GPIO.Backend {
	case BackendPeriph, BackendRPIO, BackendDevmem:
	default:
		return errors.Errorf("unknown gpio backend %q", c.Actuators.GPIO.Backend)
	}

	used := map[int]wheel.ID{}
	for id, w := range c.Actuators.Wheels.ByID() {
		for _, pin := range []int{w.Forward, w.Backward} {
			if pin < 0 || pin >= memgpio.NumPins {
				return errors.Errorf("%v: pin %d out of range", wheel.ID(id), pin)
			}
			if other, ok := used[pin]; ok {
				return errors.Errorf("%v: pin %d already used by %v", wheel.ID(id), pin, other)
			}
			used[pin] = wheel.ID(id)
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(&c)
}
