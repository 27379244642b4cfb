// Package testutil holds the deterministic helpers shared by the
// harness and engine tests: a stepping clock and a sequential run ID
// source. Both exist so the same scenario replays to byte-identical
// ledgers and traces.
package testutil

import (
	"sync"
	"time"
)

// SteppingClock is a thread-safe deterministic clock. Each Now call
// returns the epoch advanced by one more step, so a replayed scenario
// produces identical timestamps every time.
//
// A zero step means Now always returns the epoch unchanged.
type SteppingClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	ticks int64
}

// NewSteppingClock creates a clock starting at epoch. The first Now
// call returns epoch + step.
func NewSteppingClock(epoch time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{epoch: epoch, step: step}
}

// Now returns the next tick. Implements engine.Clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.epoch.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock so a scenario can replay from the epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
