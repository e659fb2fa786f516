package metadata

// Store is the per-task persistence boundary for the tracking engine.
//
// TaskMetadata blobs are partitioned by task id; the engine never touches
// another task's partition. The scalar kv surface holds small advisory
// state (pending file-context warnings) scoped by typed keys.
type Store interface {
	// Load returns the metadata for a task, or (nil, nil) when the task has
	// no metadata yet. Callers treat nil as an empty record.
	Load(taskID string) (*TaskMetadata, error)

	// Save persists the full metadata blob for a task, replacing any
	// previous blob (last writer wins at blob granularity).
	Save(taskID string, md *TaskMetadata) error

	// TaskIDs returns the ids of all tasks with persisted metadata.
	TaskIDs() ([]string, error)

	// GetValue returns a scoped scalar value. ok is false when absent.
	GetValue(key string) (value string, ok bool, err error)

	// SetValue stores a scoped scalar value, overwriting any previous one.
	SetValue(key, value string) error

	// DeleteValue removes a scoped scalar value. Deleting an absent key is
	// not an error.
	DeleteValue(key string) error

	// ListKeys returns every scalar key with the given prefix.
	ListKeys(prefix string) ([]string, error)

	// Close releases the store's resources.
	Close() error
}
