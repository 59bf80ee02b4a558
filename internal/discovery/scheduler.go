// internal/discovery/scheduler.go
package discovery

import "time"

// Timer is a handle to a scheduled function
type Timer interface {
	// Stop prevents the function from running. It returns false if the
	// function already ran or the timer was already stopped.
	Stop() bool
}

// Scheduler runs a function once after a delay
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the runtime timer heap
var SystemScheduler Scheduler = systemScheduler{}
