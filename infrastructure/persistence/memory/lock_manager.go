package memory

import (
	"context"
	"sync"
	"time"

	"chatter/application/ports"
)

// LockManager serializes work per resource inside one process. The ttl is
// ignored, locks are held until released. A resource's entry lives only
// while someone holds or waits for it.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewLockManager creates a lock manager
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*lockEntry)}
}

var _ ports.LockManager = (*LockManager)(nil)

// Acquire waits until resource is free or ctx is done
func (m *LockManager) Acquire(ctx context.Context, resource string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	entry, ok := m.locks[resource]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		m.locks[resource] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(resource, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-entry.ch
			m.unref(resource, entry)
		})
		return nil
	}, nil
}

func (m *LockManager) unref(resource string, entry *lockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, resource)
	}
}
