// Package direction turns a signed wheel speed into an on/off drive decision.
package direction

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// State is the actuation decision for one wheel.
type State uint8

const (
	Stopped State = iota
	Forward
	Backward
)

// DefaultThreshold is the half-width of the deadband around zero; speeds inside
// it are treated as "no motion".
const DefaultThreshold = 0.1

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Arbitrate applies the deadband.  The comparisons are strict, so a speed equal
// to the threshold stops the wheel.  No state is kept between calls.
func Arbitrate(speed, threshold float64) State {
	if speed > threshold {
		return Forward
	}
	if speed < -threshold {
		return Backward
	}
	return Stopped
}

// ValidateThreshold rejects thresholds that would make the deadband meaningless.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return errors.Errorf("threshold must be finite, got %v", threshold)
	}
	if threshold < 0 {
		return errors.Errorf("threshold must not be negative, got %v", threshold)
	}
	return nil
}

// Apply issues the single actuator call that corresponds to s.
func Apply(a wheel.Actuator, s State) error {
	switch s {
	case Forward:
		return a.DriveForward()
	case Backward:
		return a.DriveBackward()
	default:
		return a.Stop()
	}
}
