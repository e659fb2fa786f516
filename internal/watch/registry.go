// Package watch owns filesystem watch handles for tracked files.
//
// One Registry serves one task. Registration is per absolute file path and
// idempotent; under the hood a single fsnotify watcher subscribes to each
// file's parent directory, which keeps notifications flowing across the
// temp-file-then-rename save dance editors use. A burst of writes to the
// same path settles into one logical change after a short quiescence
// window before the change callback fires.
package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiescence window before a change is considered
// settled.
const DefaultDebounce = 100 * time.Millisecond

// settleTick is how often pending changes are checked for quiescence.
const settleTick = 25 * time.Millisecond

// ErrClosed is returned when registering on a disposed registry.
var ErrClosed = errors.New("watch: registry is closed")

// Registry tracks one watch per absolute file path and delivers settled
// change notifications through a single callback.
type Registry struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string)

	mu      sync.Mutex
	paths   map[string]struct{} // registered absolute file paths
	dirs    map[string]struct{} // directories added to the fsnotify watcher
	pending map[string]time.Time
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry creates a registry. onChange is invoked once per settled
// change to a registered path, from the registry's own goroutine.
func NewRegistry(debounce time.Duration, onChange func(path string)) (*Registry, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		paths:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		pending:  make(map[string]time.Time),
		done:     make(chan struct{}),
	}

	r.wg.Add(2)
	go r.eventLoop()
	go r.settleLoop()

	return r, nil
}

// Ensure installs a watch for path. A no-op when the path is already
// registered. path may be relative; it is resolved to an absolute path.
func (r *Registry) Ensure(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, ok := r.paths[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if _, ok := r.dirs[dir]; !ok {
		if err := r.fsw.Add(dir); err != nil {
			return err
		}
		r.dirs[dir] = struct{}{}
	}

	// No synthetic event is recorded for the current on-disk state: only
	// changes arriving after registration count.
	r.paths[abs] = struct{}{}
	return nil
}

// Has reports whether path is registered.
func (r *Registry) Has(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.paths[abs]
	return ok
}

// Count returns the number of registered paths.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// DisposeAll tears down every watch and stops the registry's goroutines.
// It returns once all underlying resources are released, and is safe to
// call more than once.
func (r *Registry) DisposeAll() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.paths = make(map[string]struct{})
	r.dirs = make(map[string]struct{})
	r.pending = make(map[string]time.Time)
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
	return r.fsw.Close()
}

// eventLoop records raw fsnotify events against registered paths.
func (r *Registry) eventLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.done:
			return

		case event, ok := <-r.fsw.Events:
			if !ok {
				return
			}
			// Create covers the rename half of atomic saves; Remove is
			// ignored on its own since the replacement write follows.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.mu.Lock()
			if _, tracked := r.paths[event.Name]; tracked && !r.closed {
				r.pending[event.Name] = time.Now()
			}
			r.mu.Unlock()

		case _, ok := <-r.fsw.Errors:
			if !ok {
				return
			}
			// Watcher errors are transient overflow conditions; the next
			// real event re-primes the pending map.
		}
	}
}

// settleLoop fires the change callback for paths quiet past the debounce
// window.
func (r *Registry) settleLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(settleTick)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return

		case now := <-ticker.C:
			for _, path := range r.takeSettled(now) {
				r.onChange(path)
			}
		}
	}
}

// takeSettled removes and returns paths whose last event is older than the
// debounce window.
func (r *Registry) takeSettled(now time.Time) []string {
	threshold := now.Add(-r.debounce)

	r.mu.Lock()
	defer r.mu.Unlock()

	var settled []string
	for path, last := range r.pending {
		if last.Before(threshold) {
			settled = append(settled, path)
			delete(r.pending, path)
		}
	}
	return settled
}
