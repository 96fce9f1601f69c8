package otp

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in process with one expiry timer per identifier.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*Entry
	timers  map[string]*time.Timer
	now     func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]*Entry),
		timers:  make(map[string]*time.Timer),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Put(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimer(e.Identifier)
	m.entries[e.Identifier] = &e

	id := e.Identifier
	m.timers[id] = time.AfterFunc(e.ExpiresAt.Sub(m.now()), func() { m.expire(id) })
	return nil
}

// expire removes the entry only if it is still there and past its expiry, so
// a late timer never drops a replacement entry.
func (m *MemoryBackend) expire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || m.now().Before(e.ExpiresAt) {
		return
	}
	delete(m.entries, id)
	delete(m.timers, id)
}

func (m *MemoryBackend) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryBackend) Update(_ context.Context, id string, fn func(e *Entry) Mutation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if fn(e) == Remove {
		m.remove(id)
	}
	return true, nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(id)
	return nil
}

// Len is the number of live entries.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryBackend) remove(id string) {
	m.stopTimer(id)
	delete(m.entries, id)
}

func (m *MemoryBackend) stopTimer(id string) {
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}
