// Package metadata defines the persisted task-context data model and the
// stores that hold it.
//
// TaskMetadata is an append-only record of every file interaction and model
// switch within a task. File entries are never mutated in place: superseding
// an entry appends a new one and flips the old one to stale, preserving a
// replayable audit trail that point-in-time queries can reason about.
package metadata

import "time"

// EntryState describes whether a file entry is the current truth for its path.
type EntryState string

const (
	// StateActive marks the single current entry for a path.
	StateActive EntryState = "active"
	// StateStale marks a superseded entry, retained for audit.
	StateStale EntryState = "stale"
)

// RecordSource describes the provenance of a file entry.
type RecordSource string

const (
	// SourceRead records the agent reading a file.
	SourceRead RecordSource = "read"
	// SourceUserEdited records an externally attributed change.
	SourceUserEdited RecordSource = "user_edited"
	// SourceAgentEdited records the agent's own write.
	SourceAgentEdited RecordSource = "agent_edited"
	// SourceMentioned records a file surfaced to the agent without a read tool.
	SourceMentioned RecordSource = "mentioned"
)

// FileEntry is one immutable record of a single file interaction.
//
// Timestamps are milliseconds since epoch. A nil timestamp means the event
// has never been observed for this path; once set, the value is carried
// forward into every later entry for the path unless a newer real event
// overwrites it.
type FileEntry struct {
	Path   string       `json:"path"`
	State  EntryState   `json:"state"`
	Source RecordSource `json:"source"`

	AgentReadAt *int64 `json:"agent_read_at,omitempty"`
	AgentEditAt *int64 `json:"agent_edit_at,omitempty"`
	UserEditAt  *int64 `json:"user_edit_at,omitempty"`
}

// ModelUsage records which model served a portion of the task.
type ModelUsage struct {
	Timestamp  int64  `json:"ts"`
	ModelID    string `json:"model_id"`
	ProviderID string `json:"provider_id"`
	Mode       string `json:"mode"`
}

// Same reports whether two usage records name the same model configuration,
// ignoring timestamps. Used for adjacent-duplicate suppression.
func (m ModelUsage) Same(o ModelUsage) bool {
	return m.ModelID == o.ModelID && m.ProviderID == o.ProviderID && m.Mode == o.Mode
}

// TaskMetadata is the full persisted context record for one task.
//
// The shape is JSON-stable: historical payloads must remain parseable across
// versions, so schema evolution is additive-only (new optional fields).
type TaskMetadata struct {
	Files      []FileEntry  `json:"files"`
	ModelUsage []ModelUsage `json:"model_usage"`
}

// NewTaskMetadata returns an empty metadata record.
func NewTaskMetadata() *TaskMetadata {
	return &TaskMetadata{
		Files:      []FileEntry{},
		ModelUsage: []ModelUsage{},
	}
}

// ActiveEntry returns the single active entry for path, or nil.
func (md *TaskMetadata) ActiveEntry(path string) *FileEntry {
	for i := range md.Files {
		if md.Files[i].Path == path && md.Files[i].State == StateActive {
			return &md.Files[i]
		}
	}
	return nil
}

// EntriesFor returns all entries for path in append order.
func (md *TaskMetadata) EntriesFor(path string) []FileEntry {
	var out []FileEntry
	for _, e := range md.Files {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Paths returns the distinct tracked paths in first-seen order.
func (md *TaskMetadata) Paths() []string {
	seen := make(map[string]struct{}, len(md.Files))
	var out []string
	for _, e := range md.Files {
		if _, ok := seen[e.Path]; ok {
			continue
		}
		seen[e.Path] = struct{}{}
		out = append(out, e.Path)
	}
	return out
}

// NowMillis returns the current wall clock in milliseconds since epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Millis returns a pointer to v, for populating nullable timestamp fields.
func Millis(v int64) *int64 {
	return &v
}
