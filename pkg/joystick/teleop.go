package joystick

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

// Teleop turns stick movements into velocity commands: the left stick drives
// and strafes, the right stick's horizontal axis turns.  Pushing a stick up or
// left gives a positive value.
type Teleop struct {
	Expo float64
	Log  logrus.FieldLogger

	current kinematics.VelocityCommand
}

// Loop reads events until the device fails or the context is done, sending a
// command for every stick movement that changes it.  The output channel is
// closed on return, which the drive loop treats as end of input.
func (t *Teleop) Loop(ctx context.Context, j *Joystick, out chan<- kinematics.VelocityCommand) error {
	defer close(out)
	defer j.Close()

	log := t.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "teleop")

	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			log.WithError(err).Error("Failed to read from joystick")
			return err
		}
		cmd, changed := t.Update(event)
		if !changed {
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

// Update folds one event into the current command.
func (t *Teleop) Update(e *Event) (kinematics.VelocityCommand, bool) {
	if e.Type != EventTypeAxis {
		return t.current, false
	}
	v := applyExpo(float64(e.Value)/(-math.MaxInt16), t.Expo)
	switch e.Number {
	case AxisLStickY:
		t.current.LinearX = v
	case AxisLStickX:
		t.current.LinearY = v
	case AxisRStickX:
		t.current.AngularZ = v
	default:
		return t.current, false
	}
	return t.current, true
}

func applyExpo(value float64, expo float64) float64 {
	if expo <= 0 {
		expo = 1
	}
	absVal := math.Abs(value)
	absExpo := math.Pow(absVal, expo)
	signedExpo := math.Copysign(absExpo, value)
	return signedExpo
}
