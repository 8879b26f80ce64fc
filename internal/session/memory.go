package session

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[string]Record{}}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[key]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return &rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Payload = append([]byte(nil), rec.Payload...)
	m.recs[rec.Key] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}
