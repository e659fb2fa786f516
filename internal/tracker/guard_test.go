package tracker

import (
	"testing"
	"time"
)

func TestGuardMarkAndConsume(t *testing.T) {
	g := NewGuard(0)

	g.Mark("/ws/a.ts")
	if !g.Consume("/ws/a.ts") {
		t.Error("expected a valid mark")
	}
	if g.Consume("/ws/a.ts") {
		t.Error("mark must be cleared on first consume")
	}
}

func TestGuardConsumeUnmarked(t *testing.T) {
	g := NewGuard(0)
	if g.Consume("/ws/a.ts") {
		t.Error("unmarked path must not consume")
	}
}

func TestGuardMarkExpiry(t *testing.T) {
	g := NewGuard(10 * time.Second)

	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }

	g.Mark("/ws/a.ts")
	now = now.Add(11 * time.Second)

	if g.Consume("/ws/a.ts") {
		t.Error("expired mark must not suppress attribution")
	}
	if g.Len() != 0 {
		t.Error("expired mark should still be cleared by consume")
	}
}

func TestGuardPrunesExpiredOnMark(t *testing.T) {
	g := NewGuard(10 * time.Second)

	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }

	g.Mark("/ws/a.ts")
	g.Mark("/ws/b.ts")
	now = now.Add(time.Minute)

	// Marking another path sweeps the stale ones, keeping the set bounded
	// when suppressed events never arrive.
	g.Mark("/ws/c.ts")

	if g.Len() != 1 {
		t.Errorf("expected only the fresh mark, got %d", g.Len())
	}
}
