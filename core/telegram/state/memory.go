package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[int64][]byte
}

// NewMemoryStore constructs an in-memory Store for tests and development.
// Records do not survive restarts.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[int64][]byte)}
}

func (m *memoryStore) Load(_ context.Context, userID int64) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *memoryStore) Save(_ context.Context, userID int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = append([]byte(nil), data...)
	return nil
}
