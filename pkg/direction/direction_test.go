package direction

import (
	"math"
	"testing"
)

func TestArbitrate(t *testing.T) {
	for _, tc := range []struct {
		speed, threshold float64
		expected         State
	}{
		{0, DefaultThreshold, Stopped},
		{1, DefaultThreshold, Forward},
		{-1, DefaultThreshold, Backward},
		{0.1, 0.1, Stopped},
		{-0.1, 0.1, Stopped},
		{0.1000001, 0.1, Forward},
		{-0.1000001, 0.1, Backward},
		{0.05, 0.1, Stopped},
		{0.0001, 0, Forward},
		{-0.0001, 0, Backward},
		{0, 0, Stopped},
		{math.NaN(), 0.1, Stopped},
		{math.Inf(1), 0.1, Forward},
		{math.Inf(-1), 0.1, Backward},
	} {
		if s := Arbitrate(tc.speed, tc.threshold); s != tc.expected {
			t.Errorf("Arbitrate(%v, %v) = %v, expected %v", tc.speed, tc.threshold, s, tc.expected)
		}
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, good := range []float64{0, 0.1, 5} {
		if err := ValidateThreshold(good); err != nil {
			t.Errorf("Threshold %v should be valid: %v", good, err)
		}
	}
	for _, bad := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		if err := ValidateThreshold(bad); err == nil {
			t.Errorf("Threshold %v should be rejected", bad)
		}
	}
}

type recorder struct {
	last string
}

func (r *recorder) DriveForward() error  { r.last = "forward"; return nil }
func (r *recorder) DriveBackward() error { r.last = "backward"; return nil }
func (r *recorder) Stop() error          { r.last = "stop"; return nil }

func TestApply(t *testing.T) {
	r := &recorder{}
	for s, expected := range map[State]string{
		Forward:  "forward",
		Backward: "backward",
		Stopped:  "stop",
	} {
		r.last = ""
		if err := Apply(r, s); err != nil {
			t.Fatalf("Apply(%v) failed: %v", s, err)
		}
		if r.last != expected {
			t.Errorf("Apply(%v) called %q, expected %q", s, r.last, expected)
		}
	}
}
