package cache

import (
	"context"
	"sync"
)

// Memory is a process-local FIFO cache.
type Memory struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Entry
	order    []string
}

// NewMemory returns an empty cache; capacity <= 0 selects DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity: capacity,
		entries:  make(map[string]Entry, capacity),
		order:    make([]string, 0, capacity),
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Put stores e under key. A new key evicts the oldest entry when the cache is
// full; an existing key is overwritten in place and keeps its position.
func (m *Memory) Put(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		m.entries[key] = e
		return nil
	}
	for len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	m.entries[key] = e
	m.order = append(m.order, key)
	return nil
}

func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}
