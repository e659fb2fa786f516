// Package sweeper reconciles lingering pending-warning keys against the
// tasks that still exist, deleting orphans. Runs once per process start.
package sweeper

import (
	"fmt"

	"contextd/internal/logging"
	"contextd/internal/metadata"
)

// Sweep deletes every pending-warning key whose embedded task id is not in
// existingTaskIDs, and returns the number of keys removed.
//
// existingTaskIDs is snapshotted by the caller before the sweep; a task
// created mid-sweep would not have a warning key yet, so the race window is
// harmless. Sweeping is idempotent.
func Sweep(store metadata.Store, existingTaskIDs map[string]struct{}) (int, error) {
	keys, err := store.ListKeys(metadata.PendingWarningKey("").String())
	if err != nil {
		return 0, fmt.Errorf("list warning keys: %w", err)
	}

	removed := 0
	for _, raw := range keys {
		taskID, ok := metadata.WarningKey(raw).TaskID()
		if !ok {
			continue
		}
		if _, alive := existingTaskIDs[taskID]; alive {
			continue
		}
		if err := store.DeleteValue(raw); err != nil {
			return removed, fmt.Errorf("delete orphan key %s: %w", raw, err)
		}
		removed++
	}

	if removed > 0 {
		logging.Info("swept orphaned warning keys", "removed", removed)
	}
	return removed, nil
}

// SweepKnown snapshots the store's own task set and sweeps against it.
func SweepKnown(store metadata.Store) (int, error) {
	ids, err := store.TaskIDs()
	if err != nil {
		return 0, fmt.Errorf("snapshot task ids: %w", err)
	}

	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return Sweep(store, existing)
}
