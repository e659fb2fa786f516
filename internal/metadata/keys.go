package metadata

import "strings"

// warningKeyPrefix scopes pending file-context warning keys in the kv store.
const warningKeyPrefix = "pendingFileContextWarning_"

// WarningKey is a scoped kv-store key carrying an embedded task id.
//
// Keys are only built through PendingWarningKey and only parsed through
// TaskID, so the prefix never appears as a bare string at call sites.
type WarningKey string

// PendingWarningKey builds the warning key for a task.
func PendingWarningKey(taskID string) WarningKey {
	return WarningKey(warningKeyPrefix + taskID)
}

// TaskID extracts the task id embedded in the key. ok is false when the key
// does not match the pending-warning pattern.
func (k WarningKey) TaskID() (id string, ok bool) {
	s := string(k)
	if !strings.HasPrefix(s, warningKeyPrefix) {
		return "", false
	}
	id = s[len(warningKeyPrefix):]
	return id, id != ""
}

// String returns the raw key string for store operations.
func (k WarningKey) String() string {
	return string(k)
}
