// Package mux drives a TCA9548A-style I2C multiplexer: writing a byte to the
// device enables the downstream ports whose bits are set.
package mux

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x70
	NumPorts    = 8
)

type Interface interface {
	DisableAllPorts() error
	SelectSinglePort(num int) error
	SelectMultiplePorts(mask byte) error
	Close() error
}

type device interface {
	Write(buf []byte) error
	Close() error
}

type Mux struct {
	dev device
}

func New(deviceFile string, addr int) (*Mux, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mux at %s/%#x", deviceFile, addr)
	}
	return &Mux{
		dev: dev,
	}, nil
}

var _ Interface = (*Mux)(nil)

func (p *Mux) SelectSinglePort(num int) error {
	if num < 0 || num >= NumPorts {
		return errors.Errorf("mux port %d out of range", num)
	}
	return p.dev.Write([]byte{1 << uint(num)})
}

func (p *Mux) SelectMultiplePorts(mask byte) error {
	return p.dev.Write([]byte{mask})
}

func (p *Mux) DisableAllPorts() error {
	return p.dev.Write([]byte{0})
}

func (p *Mux) Close() error {
	return p.dev.Close()
}
