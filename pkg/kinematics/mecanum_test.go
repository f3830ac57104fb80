package kinematics

import (
	"encoding/json"
	"testing"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

func TestTransform(t *testing.T) {
	s := Transform(VelocityCommand{})
	if s != (WheelSpeeds{}) {
		t.Fatalf("Input of 0s should return 0s, not %v", s)
	}

	expectSpeeds(t, VelocityCommand{LinearX: 1}, 1, 1, 1, 1)
	expectSpeeds(t, VelocityCommand{LinearX: -1}, -1, -1, -1, -1)
	expectSpeeds(t, VelocityCommand{LinearY: 1}, -1, 1, 1, -1)
	expectSpeeds(t, VelocityCommand{AngularZ: 1}, -1, 1, -1, 1)
	expectSpeeds(t, VelocityCommand{LinearX: 0.5, LinearY: 0.25, AngularZ: 0.125}, 0.125, 0.875, 0.625, 0.375)
}

func TestTransformMatchesEquations(t *testing.T) {
	for _, cmd := range []VelocityCommand{
		{1.5, -2.25, 0.75},
		{-0.3, 0.7, -1.1},
		{100, 0, -100},
	} {
		s := Transform(cmd)
		x, y, z := cmd.LinearX, cmd.LinearY, cmd.AngularZ
		if s[wheel.LeftFront] != x-y-z ||
			s[wheel.RightFront] != x+y+z ||
			s[wheel.LeftBack] != x+y-z ||
			s[wheel.RightBack] != x-y+z {
			t.Errorf("Transform(%v) = %v does not match the mecanum equations", cmd, s)
		}
	}
}

func TestSpeedsString(t *testing.T) {
	s := Transform(VelocityCommand{LinearY: 1})
	expected := "LF=-1.00, RF=+1.00, LB=+1.00, RB=-1.00"
	if s.String() != expected {
		t.Fatalf("Expected %q, got %q", expected, s.String())
	}
}

func expectSpeeds(t *testing.T, cmd VelocityCommand, lf, rf, lb, rb float64) {
	t.Helper()
	s := Transform(cmd)
	if s[wheel.LeftFront] != lf || s[wheel.RightFront] != rf ||
		s[wheel.LeftBack] != lb || s[wheel.RightBack] != rb {
		t.Errorf("Transform(%v) returned %v, expected LF=%v RF=%v LB=%v RB=%v", cmd, s, lf, rf, lb, rb)
	}
}

func TestSpeedsJSON(t *testing.T) {
	data, err := json.Marshal(Transform(VelocityCommand{LinearX: 1e308, LinearY: -1e308}))
	if err != nil {
		t.Fatalf("Overflowing speeds should still encode: %v", err)
	}
	if string(data) != "[null,0,0,null]" {
		t.Errorf("Got %s", data)
	}

	data, err = json.Marshal(Transform(VelocityCommand{LinearX: 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[0.5,0.5,0.5,0.5]" {
		t.Errorf("Got %s", data)
	}
}
