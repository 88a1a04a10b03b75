package sim

import "time"

// Timer is a cancellable deferred callback handle.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the stop
	// happened before the callback started.
	Stop() bool
}

// Clock schedules deferred callbacks for the engine. The production clock
// wraps time.AfterFunc; tests substitute a manually advanced clock so runs
// replay instantly and deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

// NewClock returns the wall-clock implementation.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
