// Package checkpoint decides, at restore time, which tracked files are
// inconsistent with a past conversation point.
//
// Two independent evidence sources are unioned. Metadata evidence covers
// edits the tracker recorded and still holds; message evidence covers edits
// whose metadata record was itself part of the discarded conversation tail,
// where the tool-result message is the only surviving trace. The result is
// advisory: callers warn the user, the restore itself is never blocked.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"sort"

	"contextd/internal/metadata"
	"contextd/internal/tracker"
)

// Message is one conversation record in the discarded tail.
type Message struct {
	Timestamp int64  `json:"ts"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
}

// KindTool marks messages whose Text carries a tool-result payload.
const KindTool = "tool"

// Tool operations that modify a file on disk.
const (
	toolEditedFile  = "editedExistingFile"
	toolCreatedFile = "newFileCreated"
)

// toolPayload is the JSON shape embedded in tool-result message text.
type toolPayload struct {
	Tool string `json:"tool"`
	Path string `json:"path"`
}

// Analyzer answers point-in-time staleness queries for one task.
type Analyzer struct {
	taskID string
	store  metadata.Store
}

// NewAnalyzer creates an analyzer over the task's persisted metadata.
func NewAnalyzer(taskID string, store metadata.Store) *Analyzer {
	return &Analyzer{taskID: taskID, store: store}
}

// FilesChangedSince returns the sorted set of paths whose recorded or
// message-evidenced state postdates refMillis. discarded is the message
// tail being dropped by the rewind; records in it that cannot be parsed as
// file operations are skipped, never fatal.
func (a *Analyzer) FilesChangedSince(refMillis int64, discarded []Message) ([]string, error) {
	changed := make(map[string]struct{})

	md, err := a.store.Load(a.taskID)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if md != nil {
		for _, e := range md.Files {
			if tracker.StaleAsOf(e, refMillis) {
				changed[e.Path] = struct{}{}
			}
		}
	}

	for _, path := range editedPaths(discarded) {
		changed[path] = struct{}{}
	}

	out := make([]string, 0, len(changed))
	for p := range changed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// editedPaths extracts file-edit and file-creation targets from a message
// tail, tolerating malformed records.
func editedPaths(messages []Message) []string {
	var out []string
	for _, msg := range messages {
		if msg.Kind != KindTool {
			continue
		}

		var payload toolPayload
		if err := json.Unmarshal([]byte(msg.Text), &payload); err != nil {
			continue
		}
		if payload.Path == "" {
			continue
		}
		if payload.Tool != toolEditedFile && payload.Tool != toolCreatedFile {
			continue
		}
		out = append(out, payload.Path)
	}
	return out
}
