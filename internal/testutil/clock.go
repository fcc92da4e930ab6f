package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a resettable logical clock for scenario runs.
//
// Unlike engine.Clock, DeterministicClock can be reset, so the same scenario
// run twice stamps its submissions with identical seq values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{seq: 0}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Observe advances the clock to at least seq.
func (c *DeterministicClock) Observe(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > c.seq {
		c.seq = seq
	}
}

// Reset resets the clock to 0. After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// Epoch is the wall-clock instant scenario runs pretend it is.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// FrozenNow returns a now function that always reports t.
func FrozenNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
