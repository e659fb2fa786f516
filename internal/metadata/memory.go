package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store for tests and ephemeral tasks.
// Blobs round-trip through JSON so it exercises the same encoding rules
// as the SQLite store.
type MemStore struct {
	mu     sync.Mutex
	tasks  map[string]string
	values map[string]string

	// FailLoads and FailSaves force persistence errors, for testing the
	// tracker's propagation behavior.
	FailLoads bool
	FailSaves bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tasks:  make(map[string]string),
		values: make(map[string]string),
	}
}

var errInjected = fmt.Errorf("injected persistence failure")

// Load implements Store.
func (s *MemStore) Load(taskID string) (*TaskMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailLoads {
		return nil, errInjected
	}

	payload, ok := s.tasks[taskID]
	if !ok {
		return nil, nil
	}

	var md TaskMetadata
	if err := json.Unmarshal([]byte(payload), &md); err != nil {
		return nil, fmt.Errorf("decode task metadata: %w", err)
	}
	return &md, nil
}

// Save implements Store.
func (s *MemStore) Save(taskID string, md *TaskMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves {
		return errInjected
	}

	payload, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode task metadata: %w", err)
	}
	s.tasks[taskID] = string(payload)
	return nil
}

// TaskIDs implements Store.
func (s *MemStore) TaskIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetValue implements Store.
func (s *MemStore) GetValue(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// SetValue implements Store.
func (s *MemStore) SetValue(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// DeleteValue implements Store.
func (s *MemStore) DeleteValue(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// ListKeys implements Store.
func (s *MemStore) ListKeys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	return nil
}
