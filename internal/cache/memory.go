package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local development.
// TTLs are honored lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// FailGets and FailSets make every Get/Set return FailErr, for
	// exercising degraded-cache paths.
	FailGets bool
	FailSets bool
	FailErr  error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if m.FailGets {
		return "", false, m.FailErr
	}
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if m.FailSets {
		return m.FailErr
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len returns the number of live entries, for test assertions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
