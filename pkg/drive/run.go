package drive

import (
	"context"
	"time"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/kinematics"
)

type RunOptions struct {
	// CommandTimeout, if non-zero, stops all wheels when no command has arrived
	// for that long.  The wheels stay stopped until the next command.
	CommandTimeout time.Duration
}

// Run processes commands in delivery order until the context is cancelled or
// the channel is closed, then performs the single shutdown stop pass.
func (c *Controller) Run(ctx context.Context, commands <-chan kinematics.VelocityCommand, opts RunOptions) error {
	c.log.Info("Waiting for velocity commands...")

	// The watchdog is armed by the first command and re-armed by every
	// subsequent one.
	var timeoutC <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	armWatchdog := func() {
		if opts.CommandTimeout <= 0 {
			return
		}
		if timer == nil {
			timer = time.NewTimer(opts.CommandTimeout)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(opts.CommandTimeout)
		}
		timeoutC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Interrupted, stopping all motors.")
			return c.Shutdown()
		case cmd, ok := <-commands:
			if !ok {
				c.log.Warn("Command source closed, stopping all motors.")
				return c.Shutdown()
			}
			c.OnCommand(cmd)
			armWatchdog()
		case <-timeoutC:
			c.log.WithField("timeout", opts.CommandTimeout).Warn("No command received, stopping wheels")
			c.OnCommand(kinematics.VelocityCommand{})
			// Stay stopped until a new command re-arms the timer.
			timeoutC = nil
		}
	}
}
