package settings

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	value Settings
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return Default(), nil
	}
	return m.value, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = s.Normalized()
	m.saved = true
	return nil
}
