package gpiomotor

import (
	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

type rpioBackend struct{}

// NewRPIO maps /dev/gpiomem (or /dev/mem) through go-rpio.  Only one rpio
// backend may be open at a time since the mapping is process-wide.
func NewRPIO() (Backend, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "failed to open rpio")
	}
	return rpioBackend{}, nil
}

func (rpioBackend) Name() string {
	return "rpio"
}

func (rpioBackend) Pin(n int) (Pin, error) {
	if n < 0 || n > 53 {
		return nil, errors.Errorf("pin %d out of range", n)
	}
	p := rpio.Pin(n)
	p.Output()
	return rpioPin(p), nil
}

func (rpioBackend) Close() error {
	return rpio.Close()
}

type rpioPin rpio.Pin

func (p rpioPin) Out(high bool) error {
	if high {
		rpio.Pin(p).High()
	} else {
		rpio.Pin(p).Low()
	}
	return nil
}
