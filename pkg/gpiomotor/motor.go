// Package gpiomotor drives a DC motor through an H-bridge with one GPIO pin per
// direction and no PWM: the motor either runs at full speed one way or the
// other, or is stopped.
package gpiomotor

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// Pin is a single digital output.
type Pin interface {
	Out(high bool) error
}

// Backend hands out output pins by BCM number.
type Backend interface {
	Name() string
	Pin(n int) (Pin, error)
	Close() error
}

type Motor struct {
	lock              sync.Mutex
	name              string
	forward, backward Pin
}

var _ wheel.Actuator = (*Motor)(nil)

// New creates a motor and makes sure both pins start low.
func New(name string, forward, backward Pin) (*Motor, error) {
	m := &Motor{
		name:     name,
		forward:  forward,
		backward: backward,
	}
	if err := m.Stop(); err != nil {
		return nil, err
	}
	return m, nil
}

// Open creates a motor from the backend's pins.
func Open(b Backend, name string, forwardPin, backwardPin int) (*Motor, error) {
	if forwardPin == backwardPin {
		return nil, fmt.Errorf("motor %s: forward and backward pins are both %d", name, forwardPin)
	}
	fwd, err := b.Pin(forwardPin)
	if err != nil {
		return nil, errors.Wrapf(err, "motor %s: forward pin", name)
	}
	bwd, err := b.Pin(backwardPin)
	if err != nil {
		return nil, errors.Wrapf(err, "motor %s: backward pin", name)
	}
	return New(name, fwd, bwd)
}

func (m *Motor) DriveForward() error {
	return m.drive(m.forward, m.backward)
}

func (m *Motor) DriveBackward() error {
	return m.drive(m.backward, m.forward)
}

// drive releases the opposite pin before asserting the active one so the
// bridge never sees both inputs high.
func (m *Motor) drive(on, off Pin) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := off.Out(false); err != nil {
		return errors.Wrapf(err, "motor %s", m.name)
	}
	if err := on.Out(true); err != nil {
		return errors.Wrapf(err, "motor %s", m.name)
	}
	return nil
}

func (m *Motor) Stop() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	errF := m.forward.Out(false)
	errB := m.backward.Out(false)
	if errF != nil {
		return errors.Wrapf(errF, "motor %s", m.name)
	}
	if errB != nil {
		return errors.Wrapf(errB, "motor %s", m.name)
	}
	return nil
}

func (m *Motor) String() string {
	return m.name
}
