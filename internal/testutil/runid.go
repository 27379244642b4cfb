package testutil

import (
	"fmt"
	"sync"
)

// RunIDs hands out run IDs in sequence: R0000001, R0000002, and so on.
// Wired into the engine via engine.WithRunIDs, it replaces the random
// UUID-derived IDs so golden traces stay stable across runs.
//
// Thread-safe. Reset rewinds the sequence for scenario replay.
type RunIDs struct {
	mu  sync.Mutex
	seq int64
}

// Next returns the next ID in the sequence.
func (g *RunIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("R%07d", g.seq)
}

// Reset rewinds the sequence so the next ID is R0000001 again.
func (g *RunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
