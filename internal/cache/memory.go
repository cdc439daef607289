package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Entry)}
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)
	return Entry{Payload: payload, FetchedAt: e.FetchedAt}, true, nil
}

func (m *Memory) Put(_ context.Context, key Key, entry Entry) error {
	payload := make([]byte, len(entry.Payload))
	copy(payload, entry.Payload)

	m.mu.Lock()
	m.entries[key] = Entry{Payload: payload, FetchedAt: entry.FetchedAt}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
