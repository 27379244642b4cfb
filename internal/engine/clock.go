package engine

import "time"

// Clock supplies wall time to the pipeline. Injected so tests render
// templates and stamp edges deterministically.
//
// The render seed is deliberately NOT part of the clock: reproducible
// runs require a fixed seed, so it is a constant (see context.go).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Test use only.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }
