// Package mqttsource receives velocity commands published to an MQTT topic.
package mqttsource

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

// QueueDepth is how many commands may wait for the drive loop before new
// ones are dropped.
const QueueDepth = 10

const retryInterval = 5 * time.Second

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is the JSON form of a geometry_msgs/Twist message.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// DecodeTwist parses a Twist payload.  Only the planar components are used.
func DecodeTwist(payload []byte) (kinematics.VelocityCommand, error) {
	var t Twist
	if err := json.Unmarshal(payload, &t); err != nil {
		return kinematics.VelocityCommand{}, errors.Wrap(err, "malformed twist")
	}
	return kinematics.VelocityCommand{
		LinearX:  t.Linear.X,
		LinearY:  t.Linear.Y,
		AngularZ: t.Angular.Z,
	}, nil
}

type Source struct {
	cfg    config.MQTT
	log    logrus.FieldLogger
	client mqtt.Client

	lock     sync.Mutex
	closed   bool
	commands chan kinematics.VelocityCommand

	dropped int
}

func New(cfg config.MQTT, log logrus.FieldLogger) *Source {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Source{
		cfg:      cfg,
		log:      log.WithFields(logrus.Fields{"component": "mqtt", "topic": cfg.Topic}),
		commands: make(chan kinematics.VelocityCommand, QueueDepth),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retryInterval)
	opts.OnConnect = func(client mqtt.Client) {
		s.log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
		s.subscribe(client)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		s.connectionLost(err)
	}
	s.client = mqtt.NewClient(opts)
	return s
}

// Commands is closed by Close.
func (s *Source) Commands() <-chan kinematics.VelocityCommand {
	return s.commands
}

// Start connects to the broker, retrying until it succeeds or the context is
// done.  The subscription is (re)made on every connect.
func (s *Source) Start(ctx context.Context) error {
	for {
		token := s.client.Connect()
		select {
		case <-token.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		if token.Error() == nil {
			return nil
		}
		s.log.WithError(token.Error()).Warnf("Failed to connect to MQTT broker, retrying in %v", retryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

func (s *Source) subscribe(client mqtt.Client) {
	token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg)
	})
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.WithError(err).Error("Failed to subscribe")
			return
		}
		s.log.Info("Subscribed")
	}()
}

func (s *Source) handle(msg mqtt.Message) {
	cmd, err := DecodeTwist(msg.Payload())
	if err != nil {
		s.log.WithError(err).Warn("Dropping command")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.enqueueLocked(cmd)
}

// connectionLost replaces anything still queued with a single stop command.
func (s *Source) connectionLost(err error) {
	s.log.WithError(err).Warn("MQTT connection lost, stopping")

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return
	}
	for len(s.commands) > 0 {
		select {
		case <-s.commands:
		default:
		}
	}
	s.enqueueLocked(kinematics.VelocityCommand{})
}

func (s *Source) enqueueLocked(cmd kinematics.VelocityCommand) {
	if s.closed {
		return
	}
	select {
	case s.commands <- cmd:
	default:
		s.dropped++
		s.log.WithField("dropped", s.dropped).Warnf("Command queue full, dropping %v", cmd)
	}
}

// Close disconnects from the broker and closes the command channel.
func (s *Source) Close() error {
	// Also stops a connect retry loop that has not succeeded yet.
	s.client.Disconnect(250)
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.closed {
		s.closed = true
		close(s.commands)
	}
	return nil
}
