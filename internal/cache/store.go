// Package cache stores the per-issue cache entries kept fresh by the sync engine.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrKeyMismatch is returned when an entry is written under a key other than
// its own number.
var ErrKeyMismatch = errors.New("cache key does not match issue number")

// Store is the only writer of cache entries. Callers request mutations through
// it and never hold references into its storage.
type Store interface {
	// Get returns the entry stored under key.
	Get(key string) (Entry, bool, error)
	// Put writes (or overwrites) the entry stored under key.
	Put(key string, entry Entry) error
	// All returns a snapshot of every entry, keyed by issue number.
	All() (map[string]Entry, error)
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu          sync.RWMutex
	entries     map[string]Entry
	lastRefresh time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return cloneEntry(e), ok, nil
}

func (m *Memory) Put(key string, entry Entry) error {
	if key != entry.Key() {
		return ErrKeyMismatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cloneEntry(entry)
	return nil
}

func (m *Memory) All() (map[string]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Entry, len(m.entries))
	for k, e := range m.entries {
		out[k] = cloneEntry(e)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func cloneEntry(e Entry) Entry {
	if e.Labels != nil {
		e.Labels = append([]string(nil), e.Labels...)
	}
	if e.Milestone != nil {
		ms := *e.Milestone
		e.Milestone = &ms
	}
	return e
}
