package storage

import (
	"context"
	"maps"
	"sync"
)

// Memory keeps credentials for the lifetime of the process.
type Memory struct {
	mu     sync.RWMutex
	values Values
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: Values{}}
}

func (m *Memory) Load(ctx context.Context) (Values, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values), nil
}

func (m *Memory) Set(ctx context.Context, key Key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) SetAll(ctx context.Context, values Values) error {
	if err := validValues(values); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = maps.Clone(values)
	if m.values == nil {
		m.values = Values{}
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = Values{}
	return nil
}
