package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/memgpio"
)

var CLI struct {
	Device   string        `help:"Memory device to map." default:"/dev/mem"`
	Base     int64         `help:"Physical address of the GPIO registers." default:"4263510016"`
	Pin      int           `help:"GPIO to light." default:"42"`
	Duration time.Duration `help:"How long to keep the LED on." default:"3s"`
}

func main() {
	k := kong.Parse(&CLI, kong.Description("Lights an LED by writing the GPIO registers directly."))
	k.FatalIfErrorf(run())
	fmt.Println("LED test done")
}

func run() (err error) {
	mem, err := memgpio.Open(CLI.Device, CLI.Base)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := mem.Close(); err == nil {
			err = closeErr
		}
	}()

	if err := mem.SetOutput(CLI.Pin); err != nil {
		return errors.Wrap(err, "failed to configure LED pin")
	}
	if err := mem.Set(CLI.Pin); err != nil {
		return err
	}
	fmt.Printf("GPIO%d on for %v\n", CLI.Pin, CLI.Duration)
	time.Sleep(CLI.Duration)
	return mem.Clear(CLI.Pin)
}
