// Package hardware assembles the four wheel actuators from configuration.
package hardware

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/gpiomotor"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/mux"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/picobldc"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

type Hardware struct {
	log    logrus.FieldLogger
	wheels wheel.Set

	health         HealthReporter
	healthInterval time.Duration

	// Released in reverse order.
	closers []io.Closer
}

var _ Interface = (*Hardware)(nil)

// Open builds the hardware described by cfg.
func Open(cfg config.Actuators, log logrus.FieldLogger) (Interface, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch cfg.Driver {
	case config.DriverDummy:
		return NewDummy(log), nil
	case config.DriverGPIO:
		backend, err := openBackend(cfg.GPIO)
		if err != nil {
			return nil, err
		}
		h, err := NewGPIO(backend, cfg.Wheels, log)
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.DriverPicoBLDC:
		h, err := openPicoBLDC(cfg, log)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, errors.Errorf("unknown actuator driver %q", cfg.Driver)
	}
}

func openBackend(cfg config.GPIO) (gpiomotor.Backend, error) {
	switch cfg.Backend {
	case config.BackendPeriph:
		return gpiomotor.NewPeriph()
	case config.BackendRPIO:
		return gpiomotor.NewRPIO()
	case config.BackendDevmem:
		return gpiomotor.NewDevmem(cfg.Device, cfg.Base)
	default:
		return nil, errors.Errorf("unknown gpio backend %q", cfg.Backend)
	}
}

// NewGPIO creates one two-pin motor per wheel on the backend.  The hardware
// takes ownership of the backend.
func NewGPIO(backend gpiomotor.Backend, wheels config.Wheels, log logrus.FieldLogger) (*Hardware, error) {
	h := &Hardware{
		log:     log.WithField("component", "hw"),
		closers: []io.Closer{backend},
	}
	for id, w := range wheels.ByID() {
		name := wheel.ID(id).String()
		m, err := gpiomotor.Open(backend, name, w.Forward, w.Backward)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		h.wheels[id] = maybeInvert(m, w.Invert)
		h.log.WithFields(logrus.Fields{
			"wheel":    name,
			"forward":  w.Forward,
			"backward": w.Backward,
			"invert":   w.Invert,
			"backend":  backend.Name(),
		}).Info("Motor configured")
	}
	return h, nil
}

func openPicoBLDC(cfg config.Actuators, log logrus.FieldLogger) (*Hardware, error) {
	pc := cfg.PicoBLDC
	h := &Hardware{
		log:            log.WithField("component", "hw"),
		healthInterval: cfg.HealthInterval,
	}

	if pc.MuxPort >= 0 {
		mx, err := mux.New(pc.Bus, pc.MuxAddr)
		if err != nil {
			return nil, err
		}
		h.closers = append(h.closers, mx)
		if err := mx.SelectSinglePort(pc.MuxPort); err != nil {
			_ = h.Close()
			return nil, errors.Wrap(err, "failed to select mux port")
		}
	}

	pico, err := picobldc.New(pc.Bus, pc.Addr, log)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.closers = append(h.closers, pico)

	if pc.Watchdog > 0 {
		if err := pico.SetWatchdog(pc.Watchdog); err != nil {
			_ = h.Close()
			return nil, errors.Wrap(err, "failed to enable Pico-BLDC watchdog")
		}
		h.log.WithField("timeout", pc.Watchdog).Info("Pico-BLDC watchdog enabled")
	}

	h.health = &picoHealth{pico: pico, log: h.log}
	h.wheels = NewPicoWheels(pico, pc.Speed, cfg.Wheels)
	return h, nil
}

// NewPicoWheels returns the board's wheel actuators with the configured
// inversions applied.
func NewPicoWheels(pico *picobldc.PicoBLDC, speed int16, wheels config.Wheels) wheel.Set {
	set := pico.Wheels(speed)
	for id, w := range wheels.ByID() {
		set[id] = maybeInvert(set[id], w.Invert)
	}
	return set
}

func maybeInvert(a wheel.Actuator, invert bool) wheel.Actuator {
	if invert {
		return wheel.Invert(a)
	}
	return a
}

func (h *Hardware) Wheels() wheel.Set {
	return h.wheels
}

func (h *Hardware) LoopReportingHealth(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if h.health == nil || h.healthInterval <= 0 {
		return
	}

	ticker := time.NewTicker(h.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.health.ReportHealth(); err != nil {
				h.log.WithError(err).Warn("Failed to read motor driver health")
			}
		}
	}
}

func (h *Hardware) Close() error {
	var err error
	for i := len(h.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, h.closers[i].Close())
	}
	h.closers = nil
	if err != nil {
		h.log.WithError(err).Error("Failed to release hardware")
	} else {
		h.log.Info("Hardware released")
	}
	return err
}
