package keylock

import (
	"context"
	"sync"
)

// Locker grants one exclusive critical section per string key. Implementations
// must release the lock on every exit path, including panics inside fn.
type Locker interface {
	// WithLock runs fn while holding the exclusive lock for key. It returns
	// fn's error, or a lock acquisition error (e.g. context cancellation
	// while waiting).
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// entry is a reference-counted mutex. The count lets Manager delete idle
// entries instead of growing the map forever under high key cardinality.
type entry struct {
	mu   chan struct{}
	refs int
}

// Manager is an in-process Locker backed by a map of per-key channels.
// Channel-based mutexes allow acquisition to respect context cancellation,
// which sync.Mutex cannot do.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager returns an empty in-process lock manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

func (m *Manager) acquire(ctx context.Context, key string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{mu: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.mu <- struct{}{}:
		return e, nil
	case <-ctx.Done():
		m.release(key, e, false)
		return nil, ctx.Err()
	}
}

func (m *Manager) release(key string, e *entry, held bool) {
	if held {
		<-e.mu
	}
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

// WithLock implements Locker.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e, err := m.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer m.release(key, e, true)
	return fn(ctx)
}

// Len reports the number of keys currently tracked. Intended for tests and
// leak diagnostics only.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
