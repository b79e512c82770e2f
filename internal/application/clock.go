package application

import "time"

// Clock lets services be tested against a fixed time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports T.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
