package hardware

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// Dummy is hardware that only logs what it would do.  Useful for running the
// controller on a development machine.
type Dummy struct {
	log    logrus.FieldLogger
	wheels wheel.Set
}

func NewDummy(log logrus.FieldLogger) *Dummy {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "dummy-hw")
	d := &Dummy{log: log}
	for _, id := range wheel.All {
		d.wheels[id] = &DummyWheel{ID: id, log: log}
	}
	return d
}

var _ Interface = (*Dummy)(nil)

func (d *Dummy) Wheels() wheel.Set {
	return d.wheels
}

func (d *Dummy) LoopReportingHealth(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
}

func (d *Dummy) Close() error {
	d.log.Info("DHW: Close")
	return nil
}

type DummyWheel struct {
	ID  wheel.ID
	log logrus.FieldLogger
}

func (w *DummyWheel) DriveForward() error {
	w.log.Debugf("DHW: %v forward", w.ID)
	return nil
}

func (w *DummyWheel) DriveBackward() error {
	w.log.Debugf("DHW: %v backward", w.ID)
	return nil
}

func (w *DummyWheel) Stop() error {
	w.log.Debugf("DHW: %v stop", w.ID)
	return nil
}
