package tracker

import (
	"fmt"

	"contextd/internal/metadata"
)

// ModelUsageTracker appends a deduplicating log of which model served each
// portion of a task.
type ModelUsageTracker struct {
	taskID string
	store  metadata.Store
	clock  func() int64
}

// NewModelUsageTracker creates a usage tracker for one task. clock may be
// nil for wall-clock timestamps.
func NewModelUsageTracker(taskID string, store metadata.Store, clock func() int64) *ModelUsageTracker {
	if clock == nil {
		clock = metadata.NowMillis
	}
	return &ModelUsageTracker{taskID: taskID, store: store, clock: clock}
}

// Record appends a usage entry unless the immediately preceding entry names
// the same (model, provider, mode). Only the last entry is compared: this
// is streak compression, not full-history dedup, and the distinction is
// part of the persisted history's meaning.
func (m *ModelUsageTracker) Record(providerID, modelID, mode string) error {
	md, err := m.store.Load(m.taskID)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	if md == nil {
		md = metadata.NewTaskMetadata()
	}

	entry := metadata.ModelUsage{
		Timestamp:  m.clock(),
		ModelID:    modelID,
		ProviderID: providerID,
		Mode:       mode,
	}

	if n := len(md.ModelUsage); n > 0 && md.ModelUsage[n-1].Same(entry) {
		return nil
	}

	md.ModelUsage = append(md.ModelUsage, entry)

	if err := m.store.Save(m.taskID, md); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}
