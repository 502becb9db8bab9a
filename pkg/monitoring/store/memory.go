package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
//
// Each key has its own lock, so a slow UpdateFunc on one key does not block
// others. The entries map itself is guarded by mu.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	locks   *keyLocks
	now     Clock
	closed  bool
}

// NewMemoryStore creates an empty memory store. clock may be nil.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*Entry),
		locks:   newKeyLocks(),
		now:     clock,
	}
}

// CheckAndInsert implements Store.
func (m *MemoryStore) CheckAndInsert(ctx context.Context, key string, value []byte, ttl time.Duration) (*Entry, bool, error) {
	var existing *Entry
	inserted := false
	_, err := m.Update(ctx, key, func(cur *Entry) (*Entry, error) {
		if cur != nil {
			existing = cur
			return nil, nil
		}
		now := m.now()
		inserted = true
		return &Entry{Key: key, Value: value, CreatedAt: now, ExpiresAt: expiry(now, ttl)}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return existing, inserted, nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := m.locks.lock(key)
	defer unlock()

	cur, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return cur, nil
	}
	next = copyEntry(next)
	next.Key = key

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.entries[key] = next
	return copyEntry(next), nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.Expired(m.now()) {
		return nil, nil
	}
	return copyEntry(e), nil
}

// Purge implements Store.
func (m *MemoryStore) Purge(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	now := m.now()
	var removed int64
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// keyLocks hands out one mutex per key and forgets it once unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
