package trigger

import "time"

// Clock abstracts time operations to enable testability.
// Production code uses realClock which delegates to the standard time package.
// Tests use FakeClock which allows controlling time advancement.
type Clock interface {
	// NewTimer creates a new Timer that will send the current time on its channel after duration d
	NewTimer(d time.Duration) Timer
}

// Timer represents a single event timer
type Timer interface {
	// C returns the timer's time channel
	C() <-chan time.Time
	// Stop prevents the Timer from firing
	Stop() bool
}

// realClock implements Clock using the standard time package
type realClock struct{}

// NewRealClock creates a new Clock that uses the standard time package
func NewRealClock() Clock {
	return &realClock{}
}

func (c *realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

// realTimer wraps time.Timer to implement the Timer interface
type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time {
	return t.timer.C
}

func (t *realTimer) Stop() bool {
	return t.timer.Stop()
}
