package mqttsource

import (
	"errors"
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "cmd_vel" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestSource() *Source {
	l := logrus.New()
	l.Out = ioutil.Discard
	return New(config.Default().Source.MQTT, l)
}

func TestDecodeTwist(t *testing.T) {
	for _, tc := range []struct {
		payload  string
		expected kinematics.VelocityCommand
		ok       bool
	}{
		{`{"linear":{"x":1,"y":0,"z":0},"angular":{"x":0,"y":0,"z":0}}`, kinematics.VelocityCommand{LinearX: 1}, true},
		{`{"linear":{"x":0.5,"y":-0.25,"z":9},"angular":{"x":3,"y":3,"z":-1}}`, kinematics.VelocityCommand{LinearX: 0.5, LinearY: -0.25, AngularZ: -1}, true},
		{`{"linear":{"y":1}}`, kinematics.VelocityCommand{LinearY: 1}, true},
		{`{}`, kinematics.VelocityCommand{}, true},
		{`{"linear":`, kinematics.VelocityCommand{}, false},
		{`{"linear":{"x":"fast"}}`, kinematics.VelocityCommand{}, false},
	} {
		cmd, err := DecodeTwist([]byte(tc.payload))
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.payload, err)
			continue
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("%s: expected error", tc.payload)
			}
			continue
		}
		if cmd != tc.expected {
			t.Errorf("%s: got %v, expected %v", tc.payload, cmd, tc.expected)
		}
	}
}

func TestHandleQueuesInOrder(t *testing.T) {
	s := newTestSource()
	s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	s.handle(&fakeMessage{[]byte(`not json`)})
	s.handle(&fakeMessage{[]byte(`{"angular":{"z":1}}`)})

	if got := <-s.Commands(); got != (kinematics.VelocityCommand{LinearX: 1}) {
		t.Errorf("First command %v", got)
	}
	if got := <-s.Commands(); got != (kinematics.VelocityCommand{AngularZ: 1}) {
		t.Errorf("Second command %v", got)
	}
	select {
	case cmd := <-s.Commands():
		t.Errorf("Malformed payload produced %v", cmd)
	default:
	}
}

func TestHandleDropsWhenFull(t *testing.T) {
	s := newTestSource()
	for i := 0; i < QueueDepth+5; i++ {
		s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	}
	if len(s.Commands()) != QueueDepth {
		t.Errorf("Expected %d queued commands, got %d", QueueDepth, len(s.Commands()))
	}
	if s.dropped != 5 {
		t.Errorf("Expected 5 dropped commands, got %d", s.dropped)
	}
}

func TestCloseClosesChannel(t *testing.T) {
	s := newTestSource()
	s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	// Late deliveries are ignored rather than panicking.
	s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	n := 0
	for range s.Commands() {
		n++
	}
	if n != 1 {
		t.Errorf("Expected the one queued command to drain, got %d", n)
	}
}

func TestConnectionLostStops(t *testing.T) {
	s := newTestSource()
	s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	s.handle(&fakeMessage{[]byte(`{"linear":{"y":1}}`)})

	s.connectionLost(errors.New("broker went away"))

	if len(s.Commands()) != 1 {
		t.Fatalf("Expected only the stop command to be queued, got %d commands", len(s.Commands()))
	}
	if got := <-s.Commands(); got != (kinematics.VelocityCommand{}) {
		t.Errorf("Expected a zero command after losing the broker, got %v", got)
	}
}

func TestConnectionLostWithFullQueue(t *testing.T) {
	s := newTestSource()
	for i := 0; i < QueueDepth; i++ {
		s.handle(&fakeMessage{[]byte(`{"linear":{"x":1}}`)})
	}

	s.connectionLost(errors.New("broker went away"))

	if got := <-s.Commands(); got != (kinematics.VelocityCommand{}) {
		t.Errorf("Stop command should not wait behind queued commands, got %v", got)
	}
}

func TestConnectionLostAfterClose(t *testing.T) {
	s := newTestSource()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s.connectionLost(errors.New("broker went away"))
	if _, ok := <-s.Commands(); ok {
		t.Error("Nothing should be queued after Close")
	}
}
