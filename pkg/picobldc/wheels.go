package picobldc

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// Motor channel wiring on the robot.
var motorForWheel = [wheel.NumWheels]int{
	wheel.LeftFront:  2,
	wheel.RightFront: 1,
	wheel.LeftBack:   3,
	wheel.RightBack:  0,
}

// MotorForWheel returns the board channel that drives the given wheel.
func MotorForWheel(id wheel.ID) int {
	return motorForWheel[id]
}

// Wheel drives one board channel at a fixed speed.  There is no speed ramping:
// forward and backward are +speed and -speed, stop is 0.
type Wheel struct {
	pico  *PicoBLDC
	motor int
	speed int16
}

var _ wheel.Actuator = (*Wheel)(nil)

// Wheels returns one actuator per wheel, all sharing the board.
func (p *PicoBLDC) Wheels(speed int16) wheel.Set {
	if speed < 0 {
		speed = -speed
	}
	var set wheel.Set
	for _, id := range wheel.All {
		set[id] = &Wheel{
			pico:  p,
			motor: motorForWheel[id],
			speed: speed,
		}
	}
	return set
}

func (w *Wheel) DriveForward() error {
	return w.pico.SetMotorSpeed(w.motor, w.speed)
}

func (w *Wheel) DriveBackward() error {
	return w.pico.SetMotorSpeed(w.motor, -w.speed)
}

func (w *Wheel) Stop() error {
	return w.pico.SetMotorSpeed(w.motor, 0)
}

func (w *Wheel) String() string {
	return fmt.Sprintf("picobldc-motor%d", w.motor)
}
