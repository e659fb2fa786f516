package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *changes) {
	t.Helper()

	c := &changes{}
	r, err := NewRegistry(50*time.Millisecond, c.record)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() { r.DisposeAll() })
	return r, c
}

type changes struct {
	mu    sync.Mutex
	paths []string
}

func (c *changes) record(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *changes) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func (c *changes) waitFor(t *testing.T, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := c.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d change(s), have %v", n, c.snapshot())
	return nil
}

func TestEnsureIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := r.Ensure(path); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if err := r.Ensure(path); err != nil {
		t.Fatalf("repeat Ensure failed: %v", err)
	}

	if r.Count() != 1 {
		t.Errorf("expected 1 registered path, got %d", r.Count())
	}
	if !r.Has(path) {
		t.Error("expected path to be registered")
	}
}

func TestChangeSettlesIntoOneCallback(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	r, c := newTestRegistry(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("v1"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := r.Ensure(path); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	// A burst of writes inside the debounce window is one logical change.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("burst"), 0600); err != nil {
			t.Fatalf("write file: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := c.waitFor(t, 1, 3*time.Second)
	// Give a trailing window to catch spurious extra callbacks.
	time.Sleep(200 * time.Millisecond)
	got = c.snapshot()

	if len(got) != 1 {
		t.Errorf("expected exactly one settled change, got %v", got)
	}
	if got[0] != path {
		t.Errorf("expected %s, got %s", path, got[0])
	}
}

func TestUnregisteredSiblingIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	r, c := newTestRegistry(t)

	dir := t.TempDir()
	tracked := filepath.Join(dir, "tracked.txt")
	sibling := filepath.Join(dir, "sibling.txt")
	os.WriteFile(tracked, []byte("x"), 0600)
	if err := r.Ensure(tracked); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	os.WriteFile(sibling, []byte("noise"), 0600)
	time.Sleep(300 * time.Millisecond)

	if got := c.snapshot(); len(got) != 0 {
		t.Errorf("sibling file change should not notify, got %v", got)
	}
}

func TestAtomicRenameCountsAsChange(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	r, c := newTestRegistry(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("v1"), 0600)
	if err := r.Ensure(path); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	// Editor-style save: write a temp file, rename over the target.
	tmp := filepath.Join(dir, ".a.txt.tmp")
	os.WriteFile(tmp, []byte("v2"), 0600)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	c.waitFor(t, 1, 3*time.Second)
}

func TestDisposeAllIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "a.txt")
	os.WriteFile(path, []byte("x"), 0600)
	if err := r.Ensure(path); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	if err := r.DisposeAll(); err != nil {
		t.Fatalf("DisposeAll failed: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("expected no registered paths after dispose, got %d", r.Count())
	}
	if err := r.DisposeAll(); err != nil {
		t.Fatalf("second DisposeAll failed: %v", err)
	}
}

func TestEnsureAfterDispose(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.DisposeAll()

	path := filepath.Join(t.TempDir(), "a.txt")
	os.WriteFile(path, []byte("x"), 0600)

	if err := r.Ensure(path); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
