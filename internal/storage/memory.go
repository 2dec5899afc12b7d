package storage

import (
	"context"
	"sync"
)

// Memory keeps items for the lifetime of the process.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
	return nil
}

func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Unavailable fails every call, like a browser with storage disabled.
type Unavailable struct{}

func (Unavailable) GetItem(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (Unavailable) SetItem(context.Context, string, string) error {
	return ErrUnavailable
}

func (Unavailable) RemoveItem(context.Context, string) error {
	return ErrUnavailable
}

func (Unavailable) Close() error {
	return nil
}
