package wheel

import (
	"fmt"
	"strings"
)

// ID identifies one of the four mecanum wheels.
type ID int

const (
	LeftFront ID = iota
	RightFront
	LeftBack
	RightBack

	NumWheels = 4
)

// All lists the wheels in dispatch order.
var All = [NumWheels]ID{LeftFront, RightFront, LeftBack, RightBack}

func (id ID) String() string {
	switch id {
	case LeftFront:
		return "left_front"
	case RightFront:
		return "right_front"
	case LeftBack:
		return "left_back"
	case RightBack:
		return "right_back"
	default:
		return fmt.Sprintf("unknown(%d)", int(id))
	}
}

// Short returns the two letter label used in log lines.
func (id ID) Short() string {
	switch id {
	case LeftFront:
		return "LF"
	case RightFront:
		return "RF"
	case LeftBack:
		return "LB"
	case RightBack:
		return "RB"
	default:
		return "??"
	}
}

// Parse accepts either the long or the two letter name of a wheel.
func Parse(name string) (ID, error) {
	for _, id := range All {
		if strings.EqualFold(name, id.String()) || strings.EqualFold(name, id.Short()) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown wheel %q", name)
}

// Actuator drives a single wheel motor.  Stop must be safe to call on a motor
// that has never been driven.
type Actuator interface {
	DriveForward() error
	DriveBackward() error
	Stop() error
}

// Set holds exactly one actuator per wheel.
type Set [NumWheels]Actuator

// Validate checks that every wheel has an actuator.
func (s Set) Validate() error {
	for _, id := range All {
		if s[id] == nil {
			return fmt.Errorf("no actuator for wheel %v", id)
		}
	}
	return nil
}

// Invert swaps the forward and backward directions of a motor that is wired
// (or mounted) the other way round.
func Invert(a Actuator) Actuator {
	if inv, ok := a.(inverted); ok {
		return inv.Actuator
	}
	return inverted{a}
}

type inverted struct {
	Actuator
}

func (i inverted) DriveForward() error {
	return i.Actuator.DriveBackward()
}

func (i inverted) DriveBackward() error {
	return i.Actuator.DriveForward()
}
