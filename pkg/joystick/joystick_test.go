package joystick

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

func encode(t *testing.T, events ...rawEvent) io.ReadCloser {
	t.Helper()
	var buf bytes.Buffer
	for _, e := range events {
		if err := binary.Write(&buf, binary.LittleEndian, e); err != nil {
			t.Fatal(err)
		}
	}
	return ioutil.NopCloser(&buf)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

func TestReadEvent(t *testing.T) {
	j := New(encode(t,
		rawEvent{Time: 1000, Value: -32767, Type: uint8(EventTypeAxis) | eventTypeInit, Number: AxisLStickY},
		rawEvent{Time: 1250, Value: 1, Type: uint8(EventTypeButton), Number: 3},
	))

	first, err := j.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if first.Type != EventTypeAxis || first.Number != AxisLStickY || first.Value != -32767 {
		t.Errorf("Unexpected first event %v", first)
	}
	second, err := j.ReadEvent()
	if err != nil {
		t.Fatal(err)
	}
	if second.Type != EventTypeButton || second.Number != 3 || second.Value != 1 {
		t.Errorf("Unexpected second event %v", second)
	}
	if d := second.Time.Sub(first.Time); d != 250*time.Millisecond {
		t.Errorf("Expected events 250ms apart, got %v", d)
	}
	if _, err := j.ReadEvent(); err != io.EOF {
		t.Errorf("Expected EOF at end of input, got %v", err)
	}
}

func TestApplyExpo(t *testing.T) {
	for _, tc := range []struct {
		value, expo, expected float64
	}{
		{0, 1.6, 0},
		{1, 1.6, 1},
		{-1, 1.6, -1},
		{0.5, 2, 0.25},
		{-0.5, 2, -0.25},
		{0.5, 1, 0.5},
	} {
		if got := applyExpo(tc.value, tc.expo); math.Abs(got-tc.expected) > 1e-9 {
			t.Errorf("applyExpo(%v, %v) = %v, expected %v", tc.value, tc.expo, got, tc.expected)
		}
	}
}

func TestTeleopMapping(t *testing.T) {
	tele := &Teleop{Expo: 1}
	for _, tc := range []struct {
		event    Event
		expected kinematics.VelocityCommand
		changed  bool
	}{
		{Event{Type: EventTypeAxis, Number: AxisLStickY, Value: -32767}, kinematics.VelocityCommand{LinearX: 1}, true},
		{Event{Type: EventTypeAxis, Number: AxisLStickX, Value: -32767}, kinematics.VelocityCommand{LinearX: 1, LinearY: 1}, true},
		{Event{Type: EventTypeAxis, Number: AxisRStickX, Value: 32767}, kinematics.VelocityCommand{LinearX: 1, LinearY: 1, AngularZ: -1}, true},
		{Event{Type: EventTypeAxis, Number: AxisRStickY, Value: 32767}, kinematics.VelocityCommand{LinearX: 1, LinearY: 1, AngularZ: -1}, false},
		{Event{Type: EventTypeButton, Number: 1, Value: 1}, kinematics.VelocityCommand{LinearX: 1, LinearY: 1, AngularZ: -1}, false},
		{Event{Type: EventTypeAxis, Number: AxisLStickY, Value: 0}, kinematics.VelocityCommand{LinearY: 1, AngularZ: -1}, true},
	} {
		e := tc.event
		cmd, changed := tele.Update(&e)
		if changed != tc.changed || cmd != tc.expected {
			t.Errorf("%v: got %v (changed=%v), expected %v (changed=%v)", &e, cmd, changed, tc.expected, tc.changed)
		}
	}
}

func TestTeleopLoopClosesOnEOF(t *testing.T) {
	j := New(encode(t,
		rawEvent{Time: 1, Value: -32767, Type: uint8(EventTypeAxis), Number: AxisLStickY},
		rawEvent{Time: 2, Value: 1, Type: uint8(EventTypeButton), Number: 0},
		rawEvent{Time: 3, Value: 0, Type: uint8(EventTypeAxis), Number: AxisLStickY},
	))
	tele := &Teleop{Expo: 1.6, Log: quietLogger()}
	out := make(chan kinematics.VelocityCommand, 10)

	err := tele.Loop(context.Background(), j, out)
	if err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}

	var got []kinematics.VelocityCommand
	for cmd := range out {
		got = append(got, cmd)
	}
	expected := []kinematics.VelocityCommand{{LinearX: 1}, {}}
	if len(got) != len(expected) {
		t.Fatalf("Expected %v commands, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Command %d: got %v, expected %v", i, got[i], expected[i])
		}
	}
}

func TestWaitGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Wait(ctx, "/nonexistent/js0", quietLogger()); err == nil {
		t.Fatal("Expected error once context is done")
	}
}
