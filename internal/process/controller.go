package process

import (
	"errors"
	"time"
)

// ErrExitedEarly means the launched process died inside the start-check
// window. The log file of the service carries the diagnostic.
var ErrExitedEarly = errors.New("process exited during startup")

// StopOutcome is the terminal result of a stop request. A stop always
// succeeds; Killed records that the graceful window ran out and the forced
// kill was needed. There is no error state.
type StopOutcome int

const (
	Stopped StopOutcome = iota
	Killed
	NotRunning
)

func (o StopOutcome) String() string {
	switch o {
	case Killed:
		return "killed"
	case NotRunning:
		return "not running"
	default:
		return "stopped"
	}
}

// Controller starts and terminates the managed subprocesses. It holds no
// per-process state: every operation works from a PID resolved on demand.
//
// Lifecycle per service: Stopped -> Starting -> Running -> Stopping ->
// Stopped. Starting falls back to Stopped on error; Stopping always ends with
// the process gone because the forced kill is the terminal fallback.
type Controller struct {
	// StartWindow is how long a process must stay up after launch to count
	// as started. Zero selects the default.
	StartWindow time.Duration
}

const (
	defaultStartWindow = 2500 * time.Millisecond
	startPollInterval  = 100 * time.Millisecond
	stopPollInterval   = time.Second
	killSettle         = 200 * time.Millisecond
)

func (c Controller) startWindow() time.Duration {
	if c.StartWindow > 0 {
		return c.StartWindow
	}
	return defaultStartWindow
}
