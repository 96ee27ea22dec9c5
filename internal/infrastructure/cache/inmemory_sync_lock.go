package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shiphub/backend/internal/domain/integration"
)

type lockEntry struct {
	token     uint64
	expiresAt time.Time
}

// InMemorySyncLock implements integration.SyncLock within one process.
// Suitable for single-instance deployments and tests.
type InMemorySyncLock struct {
	mu      sync.Mutex
	entries map[string]lockEntry
	next    uint64
	now     func() time.Time
}

// NewInMemorySyncLock creates an empty in-memory lock table
func NewInMemorySyncLock() *InMemorySyncLock {
	return &InMemorySyncLock{
		entries: make(map[string]lockEntry),
		now:     time.Now,
	}
}

// TryLock acquires key for ttl without blocking. Expired entries are taken over.
func (l *InMemorySyncLock) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, held := l.entries[key]; held && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	l.next++
	token := l.next
	l.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, held := l.entries[key]; held && e.token == token {
			delete(l.entries, key)
		}
		return nil
	}
	return unlock, true, nil
}

// Held reports whether key is currently locked
func (l *InMemorySyncLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, held := l.entries[key]
	return held && l.now().Before(e.expiresAt)
}

var _ integration.SyncLock = (*InMemorySyncLock)(nil)
