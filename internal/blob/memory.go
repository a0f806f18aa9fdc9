package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps payloads in-memory and returns memory:// pseudo URIs.
// It is intended for tests and development runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of data under key and returns its pseudo URI.
func (s *MemoryStore) Put(_ context.Context, key string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", key), nil
}

// Get returns the stored payload for key, if present.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	return data, ok
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
