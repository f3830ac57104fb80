// Package drive owns the four wheel actuators and turns each velocity command
// into one actuation call per wheel.
//
// A Controller is not safe for concurrent use: exactly one goroutine (normally
// the one running Run) may call OnCommand and Shutdown.
package drive

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/direction"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

type State int

const (
	StateConstructed State = iota
	StateProcessing
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateProcessing:
		return "processing"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Record is the per-command diagnostic output.  It has no effect on behaviour.
type Record struct {
	Time    time.Time                        `json:"time"`
	Command kinematics.VelocityCommand       `json:"command"`
	Speeds  kinematics.WheelSpeeds           `json:"speeds"`
	States  [wheel.NumWheels]direction.State `json:"states"`
}

// Sink receives a Record after every command.  Record is called on the control
// goroutine so implementations must not block.
type Sink interface {
	Record(r Record)
}

type Config struct {
	// Threshold is the deadband shared by all four wheels.
	Threshold float64
	Logger    logrus.FieldLogger
	Sink      Sink
}

func DefaultConfig() Config {
	return Config{
		Threshold: direction.DefaultThreshold,
	}
}

type Controller struct {
	actuators wheel.Set
	threshold float64
	log       logrus.FieldLogger
	sink      Sink

	state State
}

func New(actuators wheel.Set, cfg Config) (*Controller, error) {
	if err := actuators.Validate(); err != nil {
		return nil, errors.Wrap(err, "drive controller needs four actuators")
	}
	if err := direction.ValidateThreshold(cfg.Threshold); err != nil {
		return nil, errors.Wrap(err, "invalid deadband")
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		actuators: actuators,
		threshold: cfg.Threshold,
		log:       log.WithField("component", "drive"),
		sink:      cfg.Sink,
	}, nil
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) Threshold() float64 {
	return c.threshold
}

// OnCommand runs one full command cycle: transform, arbitrate and exactly one
// actuator call per wheel.  Actuator failures are logged and do not stop the
// remaining wheels from being driven.
func (c *Controller) OnCommand(cmd kinematics.VelocityCommand) {
	if c.state == StateShutdown {
		c.log.WithField("command", cmd).Warn("Ignoring command after shutdown")
		return
	}
	c.state = StateProcessing

	speeds := kinematics.Transform(cmd)
	var states [wheel.NumWheels]direction.State
	for _, id := range wheel.All {
		states[id] = direction.Arbitrate(speeds[id], c.threshold)
		if err := direction.Apply(c.actuators[id], states[id]); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"wheel": id,
				"state": states[id],
			}).Error("Failed to drive wheel")
		}
	}

	c.log.Info(speeds.String())
	if c.sink != nil {
		c.sink.Record(Record{
			Time:    time.Now(),
			Command: cmd,
			Speeds:  speeds,
			States:  states,
		})
	}
}

// Shutdown stops every wheel and makes the controller terminal.  Every call
// issues a fresh stop to all four actuators, so calling it again is harmless.
func (c *Controller) Shutdown() error {
	c.log.Info("Stopping all motors")
	c.state = StateShutdown

	var err error
	for _, id := range wheel.All {
		if stopErr := c.actuators[id].Stop(); stopErr != nil {
			c.log.WithError(stopErr).WithField("wheel", id).Error("Failed to stop wheel")
			err = multierr.Append(err, errors.Wrapf(stopErr, "stopping %v", id))
		}
	}
	return err
}
