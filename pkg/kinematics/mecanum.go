// Package kinematics maps robot-frame velocity commands onto the four wheels of
// a mecanum chassis.
//
// The rollers on the front wheels are angled outwards ("//") and those on the
// back wheels inwards ("\\"), which fixes the sign pattern below.  The signs
// encode the roller geometry so they must never be changed for one wheel alone.
package kinematics

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// VelocityCommand is a desired robot-frame motion: forward/back, strafe
// (positive to the left) and yaw rate (positive anti-clockwise).
type VelocityCommand struct {
	LinearX  float64 `json:"linear_x" yaml:"linear_x"`
	LinearY  float64 `json:"linear_y" yaml:"linear_y"`
	AngularZ float64 `json:"angular_z" yaml:"angular_z"`
}

func (c VelocityCommand) String() string {
	return fmt.Sprintf("x=%+.2f y=%+.2f z=%+.2f", c.LinearX, c.LinearY, c.AngularZ)
}

// WheelSpeeds holds one signed, unscaled speed per wheel.
type WheelSpeeds [wheel.NumWheels]float64

// Transform is the inverse kinematics of the chassis.  No clamping or
// normalisation is applied.
func Transform(cmd VelocityCommand) WheelSpeeds {
	var s WheelSpeeds
	s[wheel.LeftFront] = cmd.LinearX - cmd.LinearY - cmd.AngularZ
	s[wheel.RightFront] = cmd.LinearX + cmd.LinearY + cmd.AngularZ
	s[wheel.LeftBack] = cmd.LinearX + cmd.LinearY - cmd.AngularZ
	s[wheel.RightBack] = cmd.LinearX - cmd.LinearY + cmd.AngularZ
	return s
}

// String formats the speeds as "LF=+1.00, RF=+1.00, LB=+1.00, RB=+1.00".
func (s WheelSpeeds) String() string {
	parts := make([]string, 0, wheel.NumWheels)
	for _, id := range wheel.All {
		parts = append(parts, fmt.Sprintf("%s=%+.2f", id.Short(), s[id]))
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON writes speeds that overflowed to infinity as null, which JSON
// has no other way to represent.
func (s WheelSpeeds) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsInf(s[i], 0) || math.IsNaN(s[i]) {
			continue
		}
		v := s[i]
		out[i] = &v
	}
	return json.Marshal(out)
}
