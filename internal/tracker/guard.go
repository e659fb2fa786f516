package tracker

import (
	"sync"
	"time"
)

// DefaultMarkTTL bounds how long an unconsumed agent-edit mark keeps
// suppressing attribution. The OS event for the agent's own write normally
// lands well inside this window; a mark that outlives it belongs to a write
// that never produced an event and must not swallow a later external edit.
const DefaultMarkTTL = 15 * time.Second

// Guard is the in-flight agent-edit marker set. A mark on a path means the
// next settled change notification for that path originated from the
// agent's own write and is not evidence of an external edit.
//
// Marks live only in process memory. Expired marks are pruned on every
// insert, so the set stays bounded even when writes never produce events.
type Guard struct {
	mu    sync.Mutex
	marks map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewGuard creates a guard with the given mark validity window.
func NewGuard(ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultMarkTTL
	}
	return &Guard{
		marks: make(map[string]time.Time),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Mark records path as having a pending agent write. Must be called before
// the write hits disk.
func (g *Guard) Mark(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for p, at := range g.marks {
		if now.Sub(at) > g.ttl {
			delete(g.marks, p)
		}
	}
	g.marks[path] = now
}

// Consume clears any mark for path and reports whether a still-valid mark
// was present. Each change notification consults the guard exactly once.
func (g *Guard) Consume(path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.marks[path]
	if !ok {
		return false
	}
	delete(g.marks, path)
	return g.now().Sub(at) <= g.ttl
}

// Len returns the number of outstanding marks, expired ones included.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.marks)
}
