package config

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Stopwatch measures time elapsed since the start of a solve.
type Stopwatch struct {
	clock Clock
	start time.Time
}

func NewStopwatch(clock Clock) *Stopwatch {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Stopwatch{clock: clock, start: clock.Now()}
}

func (stopwatch *Stopwatch) Elapsed() time.Duration {
	return stopwatch.clock.Now().Sub(stopwatch.start)
}
