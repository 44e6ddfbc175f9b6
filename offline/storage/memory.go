package storage

import (
	"context"
	"sync"
)

// MemoryStore is a Store backed by a process-local map. Intended for tests
// and as a fallback when no durable backend is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// GetItem returns a copy of the value stored under key.
func (s *MemoryStore) GetItem(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

// SetItem stores a copy of value under key.
func (s *MemoryStore) SetItem(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = stored

	return nil
}

// RemoveItem deletes key. Absent keys are a no-op.
func (s *MemoryStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)

	return nil
}

// MultiRemove deletes all keys in one locked pass.
func (s *MemoryStore) MultiRemove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.items, key)
	}

	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}
