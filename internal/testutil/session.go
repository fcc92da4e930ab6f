package testutil

import (
	"fmt"
	"sync"
)

// SequentialSessionGenerator issues session-001, session-002, ... so that
// anonymous submissions in a scenario get stable participant keys.
//
// Unlike engine.FixedGenerator it never runs out.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialSessionGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialSessionGenerator creates a generator. An empty prefix
// defaults to "session".
func NewSequentialSessionGenerator(prefix string) *SequentialSessionGenerator {
	if prefix == "" {
		prefix = "session"
	}
	return &SequentialSessionGenerator{prefix: prefix}
}

// Generate returns the next session token.
//
// Implements engine.SessionGenerator interface.
func (g *SequentialSessionGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
