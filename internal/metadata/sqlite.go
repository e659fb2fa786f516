package metadata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the context tracking store.
const schema = `
CREATE TABLE IF NOT EXISTS task_metadata (
    task_id     TEXT PRIMARY KEY,
    payload     TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scoped_values (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);
`

// SQLiteStore persists task metadata and scoped scalar state in SQLite.
// Metadata blobs are stored as JSON text so the persisted shape stays
// directly inspectable and survives additive schema evolution.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the store database at the given path.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load retrieves and decodes the metadata blob for a task.
// The payload is checked against the embedded schema before decoding so a
// corrupt or truncated blob surfaces as a persistence failure instead of a
// silently partial record.
func (s *SQLiteStore) Load(taskID string) (*TaskMetadata, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM task_metadata WHERE task_id = ?`, taskID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load task metadata: %w", err)
	}

	if err := ValidatePayload([]byte(payload)); err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}

	var md TaskMetadata
	if err := json.Unmarshal([]byte(payload), &md); err != nil {
		return nil, fmt.Errorf("decode task metadata: %w", err)
	}

	return &md, nil
}

// Save encodes and upserts the metadata blob for a task.
func (s *SQLiteStore) Save(taskID string, md *TaskMetadata) error {
	payload, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode task metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO task_metadata (task_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		taskID, string(payload), NowMillis(),
	)
	if err != nil {
		return fmt.Errorf("save task metadata: %w", err)
	}

	return nil
}

// RawPayload returns the undecoded metadata payload for a task, for
// integrity inspection. ok is false when the task has no metadata.
func (s *SQLiteStore) RawPayload(taskID string) (string, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM task_metadata WHERE task_id = ?`, taskID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load task payload: %w", err)
	}
	return payload, true, nil
}

// TaskIDs returns all task ids with persisted metadata.
func (s *SQLiteStore) TaskIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT task_id FROM task_metadata ORDER BY task_id`)
	if err != nil {
		return nil, fmt.Errorf("query task ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task ids: %w", err)
	}

	return ids, nil
}

// GetValue retrieves a scoped scalar value.
func (s *SQLiteStore) GetValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM scoped_values WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get scoped value: %w", err)
	}
	return value, true, nil
}

// SetValue upserts a scoped scalar value.
func (s *SQLiteStore) SetValue(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO scoped_values (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, NowMillis(),
	)
	if err != nil {
		return fmt.Errorf("set scoped value: %w", err)
	}
	return nil
}

// DeleteValue removes a scoped scalar value.
func (s *SQLiteStore) DeleteValue(key string) error {
	if _, err := s.db.Exec(`DELETE FROM scoped_values WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete scoped value: %w", err)
	}
	return nil
}

// ListKeys returns every scalar key with the given prefix.
func (s *SQLiteStore) ListKeys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM scoped_values WHERE key LIKE ? || '%' ORDER BY key`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("query scoped keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan scoped key: %w", err)
		}
		keys = append(keys, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scoped keys: %w", err)
	}

	return keys, nil
}
