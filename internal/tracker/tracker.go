// Package tracker keeps a task's belief about tracked files consistent
// with the real filesystem.
//
// One Tracker serves one task. Every read, edit, or mention of a file is
// recorded as an append-only metadata entry; a filesystem watch is
// installed for each tracked path, and detected changes are attributed as
// agent-originated or external using the in-flight edit marks the
// orchestrator sets just before the agent writes.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"contextd/internal/logging"
	"contextd/internal/metadata"
	"contextd/internal/watch"
)

// ErrWorkspaceUnavailable is returned by Track when no workspace root can
// be resolved. No state is mutated in that case.
var ErrWorkspaceUnavailable = errors.New("tracker: no workspace root available")

// CwdResolver reports the current workspace root, if any.
type CwdResolver func() (string, bool)

// Config configures a Tracker.
type Config struct {
	// TaskID partitions all persisted state.
	TaskID string

	// Store holds the task's metadata and advisory warning state.
	Store metadata.Store

	// Cwd resolves the workspace root tracked paths are relative to.
	Cwd CwdResolver

	// Debounce is the watch quiescence window. Zero means the default.
	Debounce time.Duration

	// MarkTTL is the agent-edit mark validity window. Zero means the default.
	MarkTTL time.Duration

	// Clock returns the current time in milliseconds since epoch.
	// Nil means wall clock. Injected by tests.
	Clock func() int64
}

// Tracker records file interactions for one task and answers staleness
// queries about them.
type Tracker struct {
	taskID string
	store  metadata.Store
	cwd    CwdResolver
	guard  *Guard
	clock  func() int64

	registry *watch.Registry

	mu       sync.Mutex
	relByAbs map[string]string   // watched absolute path -> tracked relative path
	recent   map[string]struct{} // externally modified since last drain
}

// New creates a tracker and starts its watch registry.
func New(cfg Config) (*Tracker, error) {
	if cfg.Store == nil {
		return nil, errors.New("tracker: store is required")
	}
	if cfg.Cwd == nil {
		return nil, errors.New("tracker: cwd resolver is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = metadata.NowMillis
	}

	t := &Tracker{
		taskID:   cfg.TaskID,
		store:    cfg.Store,
		cwd:      cfg.Cwd,
		guard:    NewGuard(cfg.MarkTTL),
		clock:    clock,
		relByAbs: make(map[string]string),
		recent:   make(map[string]struct{}),
	}

	registry, err := watch.NewRegistry(cfg.Debounce, t.handleChange)
	if err != nil {
		return nil, fmt.Errorf("create watch registry: %w", err)
	}
	t.registry = registry

	return t, nil
}

// Track records an interaction with path. path is workspace-relative; the
// entry is appended with its timestamps carried forward from all prior
// entries for the path, prior active entries are flipped to stale, and a
// filesystem watch is ensured.
//
// Repeated calls for the same path are safe: state converges while every
// touch still lands in the audit trail.
func (t *Tracker) Track(path string, source metadata.RecordSource) error {
	root, ok := t.cwd()
	if !ok {
		return ErrWorkspaceUnavailable
	}

	md, err := t.store.Load(t.taskID)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	if md == nil {
		md = metadata.NewTaskMetadata()
	}

	t.appendEntry(md, path, source)

	if err := t.store.Save(t.taskID, md); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	if source == metadata.SourceUserEdited {
		t.noteExternalEdit(path)
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, path)
	}
	if err := t.ensureWatch(abs, path); err != nil {
		// Tracking is degraded for this path, not broken for the task.
		logging.Warn("watch install failed", "path", path, "error", err)
	}

	return nil
}

// appendEntry applies the metadata mutation for one interaction: flip
// active entries stale, carry timestamps forward, stamp the new event, and
// append the new active entry.
func (t *Tracker) appendEntry(md *metadata.TaskMetadata, path string, source metadata.RecordSource) {
	for i := range md.Files {
		if md.Files[i].Path == path && md.Files[i].State == metadata.StateActive {
			md.Files[i].State = metadata.StateStale
		}
	}

	entry := metadata.FileEntry{
		Path:   path,
		State:  metadata.StateActive,
		Source: source,
	}

	// Carry forward the max non-null value per field across all prior
	// entries. A later entry can have a null field where an earlier one
	// had a value, so the latest entry alone is not enough.
	for _, prior := range md.Files {
		if prior.Path != path {
			continue
		}
		entry.AgentReadAt = maxMillis(entry.AgentReadAt, prior.AgentReadAt)
		entry.AgentEditAt = maxMillis(entry.AgentEditAt, prior.AgentEditAt)
		entry.UserEditAt = maxMillis(entry.UserEditAt, prior.UserEditAt)
	}

	now := t.clock()
	switch source {
	case metadata.SourceRead, metadata.SourceMentioned:
		entry.AgentReadAt = metadata.Millis(now)
	case metadata.SourceAgentEdited:
		entry.AgentReadAt = metadata.Millis(now)
		entry.AgentEditAt = metadata.Millis(now)
	case metadata.SourceUserEdited:
		entry.UserEditAt = metadata.Millis(now)
	}

	md.Files = append(md.Files, entry)
}

// MarkAgentEdit flags path as having an in-flight agent write, so the next
// settled change notification for it is not attributed externally. Must be
// called strictly before the write hits disk.
func (t *Tracker) MarkAgentEdit(path string) {
	t.guard.Mark(t.watchKey(path))
}

// TakeRecentlyModified returns and clears the externally modified paths
// observed since the last call.
func (t *Tracker) TakeRecentlyModified() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, 0, len(t.recent))
	for p := range t.recent {
		out = append(out, p)
	}
	t.recent = make(map[string]struct{})
	return out
}

// PendingWarning returns the persisted externally-modified paths recorded
// for the task, for surfacing an advisory warning after a restore.
func (t *Tracker) PendingWarning() ([]string, error) {
	return LoadPendingWarning(t.store, t.taskID)
}

// ClearPendingWarning removes the persisted warning state for the task.
func (t *Tracker) ClearPendingWarning() error {
	return t.store.DeleteValue(metadata.PendingWarningKey(t.taskID).String())
}

// WatchCount returns the number of installed watches.
func (t *Tracker) WatchCount() int {
	return t.registry.Count()
}

// Dispose tears down every watch handle. It blocks until all underlying
// resources are released and is safe to call more than once.
func (t *Tracker) Dispose() error {
	return t.registry.DisposeAll()
}

// HandleExternalChange feeds a settled change notification for path through
// attribution, exactly as the watch registry does. Exposed for callers that
// learn about changes out of band (and for tests driving synthetic events).
func (t *Tracker) HandleExternalChange(path string) {
	t.handleChange(t.watchKey(path))
}

// StaleAsOf reports whether entry records an edit after refMillis. Pure
// predicate over the entry's stamped timestamps; on-disk state is not
// consulted.
func StaleAsOf(e metadata.FileEntry, refMillis int64) bool {
	return tsAfter(e.AgentEditAt, refMillis) || tsAfter(e.UserEditAt, refMillis)
}

// LoadPendingWarning reads the persisted warning path list for a task.
func LoadPendingWarning(store metadata.Store, taskID string) ([]string, error) {
	raw, ok, err := store.GetValue(metadata.PendingWarningKey(taskID).String())
	if err != nil {
		return nil, fmt.Errorf("load pending warning: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var paths []string
	if err := json.Unmarshal([]byte(raw), &paths); err != nil {
		return nil, fmt.Errorf("decode pending warning: %w", err)
	}
	return paths, nil
}

// handleChange is the settled-change callback wired into the watch
// registry. The guard is consulted exactly once per notification.
func (t *Tracker) handleChange(abs string) {
	if t.guard.Consume(abs) {
		// The agent's own write; the metadata entry was already recorded
		// through Track(agent_edited).
		return
	}

	rel := t.relOf(abs)
	if err := t.Track(rel, metadata.SourceUserEdited); err != nil {
		logging.Error("record external edit", "path", rel, "error", err)
	}
}

// ensureWatch installs the watch for abs and remembers its tracked
// relative spelling for attribution callbacks.
func (t *Tracker) ensureWatch(abs, rel string) error {
	if err := t.registry.Ensure(abs); err != nil {
		return err
	}

	t.mu.Lock()
	t.relByAbs[abs] = rel
	t.mu.Unlock()
	return nil
}

// noteExternalEdit records path in the in-memory drain set and merges it
// into the persisted pending-warning list.
func (t *Tracker) noteExternalEdit(path string) {
	t.mu.Lock()
	t.recent[path] = struct{}{}
	t.mu.Unlock()

	key := metadata.PendingWarningKey(t.taskID).String()

	paths, err := LoadPendingWarning(t.store, t.taskID)
	if err != nil {
		logging.Warn("read pending warning", "task", t.taskID, "error", err)
		paths = nil
	}
	for _, p := range paths {
		if p == path {
			return
		}
	}
	paths = append(paths, path)

	raw, err := json.Marshal(paths)
	if err != nil {
		logging.Warn("encode pending warning", "task", t.taskID, "error", err)
		return
	}
	if err := t.store.SetValue(key, string(raw)); err != nil {
		logging.Warn("persist pending warning", "task", t.taskID, "error", err)
	}
}

// watchKey normalizes path to the absolute spelling watch events carry.
func (t *Tracker) watchKey(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if root, ok := t.cwd(); ok {
		return filepath.Join(root, path)
	}
	return filepath.Clean(path)
}

// relOf maps a watched absolute path back to its tracked relative
// spelling, falling back to the absolute path for unknown ones.
func (t *Tracker) relOf(abs string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rel, ok := t.relByAbs[abs]; ok {
		return rel
	}
	return abs
}

// maxMillis returns a copy of the larger non-nil timestamp, so entries
// never share pointers.
func maxMillis(a, b *int64) *int64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return metadata.Millis(*b)
	case b == nil:
		return metadata.Millis(*a)
	case *b > *a:
		return metadata.Millis(*b)
	default:
		return metadata.Millis(*a)
	}
}

func tsAfter(ts *int64, ref int64) bool {
	return ts != nil && *ts > ref
}
