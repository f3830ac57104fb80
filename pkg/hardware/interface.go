package hardware

import (
	"context"
	"sync"

	"github.com/tigerbot-team/tigerbot/mecanum-controller/pkg/wheel"
)

// Interface is the assembled motor hardware of the robot.
type Interface interface {
	// Wheels returns the four wheel actuators.  The set is fixed for the
	// lifetime of the hardware.
	Wheels() wheel.Set
	// LoopReportingHealth periodically logs the motor driver's health until
	// the context is done.  Drivers with nothing to report return at once.
	LoopReportingHealth(ctx context.Context, wg *sync.WaitGroup)
	// Close releases pins, mappings and buses.  The wheels must already have
	// been stopped.
	Close() error
}

// HealthReporter is implemented by motor drivers that can report their
// power and fault state.
type HealthReporter interface {
	ReportHealth() error
}
