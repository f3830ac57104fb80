package gpiomotor

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

type periphBackend struct{}

// NewPeriph initialises the periph host drivers and looks pins up through the
// periph GPIO registry.
func NewPeriph() (Backend, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init failed")
	}
	return periphBackend{}, nil
}

func (periphBackend) Name() string {
	return "periph"
}

func (periphBackend) Pin(n int) (Pin, error) {
	name := fmt.Sprintf("GPIO%d", n)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such pin %s", name)
	}
	return periphPin{p}, nil
}

func (periphBackend) Close() error {
	return nil
}

type periphPin struct {
	p gpio.PinIO
}

func (p periphPin) Out(high bool) error {
	return p.p.Out(gpio.Level(high))
}
