package procmeta

import (
	"sync"
)

type entry[T any] struct {
	lifetime Lifetime
	value    T
}

// Manager maps process lifetimes to values of type T.
type Manager[T any] struct {
	mu      sync.RWMutex
	entries map[int][]entry[T] // PID -> lifetimes in insertion order
}

// NewManager creates an empty manager.
func NewManager[T any]() *Manager[T] {
	return &Manager[T]{
		entries: make(map[int][]entry[T]),
	}
}

// Add records value for a lifetime (command).
func (m *Manager[T]) Add(l Lifetime, value T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[l.PID] = append(m.entries[l.PID], entry[T]{lifetime: l, value: value})
}

// Lookup returns the value of the most recently added lifetime of pid that
// covers at (query).
func (m *Manager[T]) Lookup(pid int, at int64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries[pid]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].lifetime.Covers(at) {
			return entries[i].value, true
		}
	}
	var zero T
	return zero, false
}
