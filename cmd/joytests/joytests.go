package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

var CLI struct {
	Config string `help:"YAML config file." default:"/cfg/mecanum.yaml" type:"path"`
}

// joytests prints the joystick events and the velocity command and wheel
// speeds each one produces, without driving any motors.
func main() {
	k := kong.Parse(&CLI)
	cfg, err := config.Load(CLI.Config)
	k.FatalIfErrorf(err)

	log := logrus.New()

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	j, err := joystick.Wait(ctx, cfg.Source.Joystick.Device, log)
	k.FatalIfErrorf(err)
	defer j.Close()

	teleop := &joystick.Teleop{Expo: cfg.Source.Joystick.Expo, Log: log}
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			fmt.Printf("Failed to read from joystick: %v.\n", err)
			return
		}
		cmd, changed := teleop.Update(event)
		if !changed {
			fmt.Println(event)
			continue
		}
		fmt.Printf("%v -> %v -> %v\n", event, cmd, kinematics.Transform(cmd))
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		fmt.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
