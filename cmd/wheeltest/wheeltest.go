package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/direction"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

var CLI struct {
	Config string        `help:"YAML config file." default:"/cfg/mecanum.yaml" type:"path"`
	Step   time.Duration `help:"How long to hold each direction." default:"1s"`
	Wheel  []string      `help:"Wheels to test (left_front, right_front, left_back, right_back); all if unset."`
}

func main() {
	k := kong.Parse(&CLI, kong.Description("Runs each wheel forwards then backwards to check wiring."))

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.Info("---- Wheel test ----")

	cfg, err := config.Load(CLI.Config)
	k.FatalIfErrorf(err)
	wheels, err := selectWheels(CLI.Wheel)
	k.FatalIfErrorf(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-signals
		cancel()
	}()

	hw, err := hardware.Open(cfg.Actuators, log)
	k.FatalIfErrorf(err)
	defer func() {
		if err := hw.Close(); err != nil {
			log.WithError(err).Error("Failed to release hardware")
		}
	}()

	set := hw.Wheels()
	defer func() {
		for _, id := range wheel.All {
			_ = set[id].Stop()
		}
	}()

	for _, id := range wheels {
		for _, s := range []direction.State{direction.Forward, direction.Backward, direction.Stopped} {
			if ctx.Err() != nil {
				log.Info("Interrupted")
				return
			}
			log.WithFields(logrus.Fields{"wheel": id, "state": s}).Info("Driving")
			if err := direction.Apply(set[id], s); err != nil {
				log.WithError(err).WithField("wheel", id).Error("Wheel failed")
			}
			select {
			case <-ctx.Done():
			case <-time.After(CLI.Step):
			}
		}
	}
	log.Info("Wheel test done")
}

func selectWheels(names []string) ([]wheel.ID, error) {
	if len(names) == 0 {
		return wheel.All[:], nil
	}
	var ids []wheel.ID
	for _, name := range names {
		id, err := wheel.Parse(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
