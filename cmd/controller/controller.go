package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/drive"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/mqttsource"
	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/telemetry"
)

var CLI struct {
	Config   string `help:"YAML config file; defaults are used if it does not exist." default:"/cfg/mecanum.yaml" type:"path"`
	LogLevel string `help:"Log level, overriding the config file."`

	Run        RunCmd        `cmd:"" default:"1" help:"Drive the robot from the configured command source."`
	DumpConfig DumpConfigCmd `cmd:"" help:"Print the effective configuration as YAML."`
}

type Context struct {
	cfg config.Config
	log *logrus.Logger
}

func main() {
	k := kong.Parse(&CLI,
		kong.Name("controller"),
		kong.Description("Mecanum drive controller."),
	)

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(CLI.Config)
	k.FatalIfErrorf(err)

	level := cfg.LogLevel
	if CLI.LogLevel != "" {
		level = CLI.LogLevel
	}
	if level != "" {
		l, err := logrus.ParseLevel(level)
		k.FatalIfErrorf(err)
		log.SetLevel(l)
	}

	err = k.Run(&Context{cfg: cfg, log: log})
	k.FatalIfErrorf(err)
}

type DumpConfigCmd struct{}

func (d *DumpConfigCmd) Run(c *Context) error {
	data, err := c.cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

type RunCmd struct{}

func (r *RunCmd) Run(c *Context) error {
	log := c.log
	log.Info("---- Mecanum controller ----")
	log.Info("GOMAXPROCS ", runtime.GOMAXPROCS(0))

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel, log)

	hw, err := hardware.Open(c.cfg.Actuators, log)
	if err != nil {
		return errors.Wrap(err, "failed to initialise hardware")
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.WithError(err).Error("Failed to release hardware")
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go hw.LoopReportingHealth(ctx, &wg)

	driveCfg := drive.Config{
		Threshold: c.cfg.Threshold,
		Logger:    log,
	}
	if listen := c.cfg.Telemetry.Listen; listen != "" {
		hub := telemetry.NewHub(log)
		driveCfg.Sink = hub
		wg.Add(2)
		go hub.Loop(ctx, &wg)
		go hub.Serve(ctx, listen, &wg)
	}

	ctrl, err := drive.New(hw.Wheels(), driveCfg)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}

	commands, closeSource := startSource(ctx, c.cfg.Source, log)
	defer closeSource()

	err = ctrl.Run(ctx, commands, drive.RunOptions{CommandTimeout: c.cfg.CommandTimeout})
	cancel()
	wg.Wait()
	return err
}

// startSource starts the configured command source in the background.
func startSource(ctx context.Context, cfg config.Source, log logrus.FieldLogger) (<-chan kinematics.VelocityCommand, func()) {
	switch cfg.Kind {
	case config.SourceMQTT:
		src := mqttsource.New(cfg.MQTT, log)
		go func() {
			if err := src.Start(ctx); err != nil {
				log.WithError(err).Warn("MQTT source did not start")
			}
		}()
		return src.Commands(), func() { _ = src.Close() }
	default:
		// The reader goroutine blocks in read(2) so it is not waited for;
		// the process exits after the drive loop returns.
		commands := make(chan kinematics.VelocityCommand)
		go func() {
			j, err := joystick.Wait(ctx, cfg.Joystick.Device, log)
			if err != nil {
				close(commands)
				return
			}
			teleop := &joystick.Teleop{Expo: cfg.Joystick.Expo, Log: log}
			_ = teleop.Loop(ctx, j, commands)
		}()
		return commands, func() {}
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc, log logrus.FieldLogger) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.WithField("signal", s).Info("Signal received, shutting down")
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
