package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeClock is a settable clock shared by a store under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type backend struct {
	name    string
	store   Store
	advance func(time.Duration)
}

func newBackends(t *testing.T) []backend {
	t.Helper()

	memClock := newFakeClock()
	mem := NewMemoryStore(memClock.Now)

	sqlClock := newFakeClock()
	sqlStore, err := NewSQLiteStore(SQLiteConfig{
		Path:  filepath.Join(t.TempDir(), "monitoring.db"),
		Clock: sqlClock.Now,
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisClock := newFakeClock()
	rs := NewRedisStore(client, RedisConfig{Clock: redisClock.Now})

	t.Cleanup(func() {
		mem.Close()
		sqlStore.Close()
		rs.Close()
	})

	return []backend{
		{name: "memory", store: mem, advance: memClock.Advance},
		{name: "sqlite", store: sqlStore, advance: sqlClock.Advance},
		{name: "redis", store: rs, advance: func(d time.Duration) {
			redisClock.Advance(d)
			mr.FastForward(d)
		}},
	}
}

func TestStore_CheckAndInsert(t *testing.T) {
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			existing, inserted, err := b.store.CheckAndInsert(ctx, "dedup:txn_001", []byte("first"), time.Hour)
			if err != nil {
				t.Fatalf("CheckAndInsert failed: %v", err)
			}
			if !inserted || existing != nil {
				t.Fatalf("Expected first insert to succeed, got inserted=%v existing=%v", inserted, existing)
			}

			existing, inserted, err = b.store.CheckAndInsert(ctx, "dedup:txn_001", []byte("second"), time.Hour)
			if err != nil {
				t.Fatalf("CheckAndInsert failed: %v", err)
			}
			if inserted {
				t.Fatal("Expected second insert to be rejected")
			}
			if existing == nil || string(existing.Value) != "first" {
				t.Errorf("Expected existing value 'first', got %v", existing)
			}
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			if _, _, err := b.store.CheckAndInsert(ctx, "k", []byte("v"), time.Minute); err != nil {
				t.Fatalf("CheckAndInsert failed: %v", err)
			}
			b.advance(2 * time.Minute)

			got, err := b.store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != nil {
				t.Errorf("Expected expired entry to be invisible, got %v", got)
			}

			_, inserted, err := b.store.CheckAndInsert(ctx, "k", []byte("again"), time.Minute)
			if err != nil {
				t.Fatalf("CheckAndInsert failed: %v", err)
			}
			if !inserted {
				t.Error("Expected insert after expiry to succeed")
			}
		})
	}
}

func TestStore_Update(t *testing.T) {
	for _, b := range newBackends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			incr := func(cur *Entry) (*Entry, error) {
				n := byte(0)
				if cur != nil {
					n = cur.Value[0]
				}
				return &Entry{Value: []byte{n + 1}, ExpiresAt: time.Now().Add(24 * time.Hour)}, nil
			}

			for i := 0; i < 3; i++ {
				if _, err := b.store.Update(ctx, "group", incr); err != nil {
					t.Fatalf("Update failed: %v", err)
				}
			}

			got, err := b.store.Get(ctx, "group")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got == nil || got.Value[0] != 3 {
				t.Errorf("Expected counter 3, got %v", got)
			}

			boom := errors.New("boom")
			_, err = b.store.Update(ctx, "group", func(*Entry) (*Entry, error) { return nil, boom })
			if !errors.Is(err, boom) {
				t.Errorf("Expected fn error to propagate, got %v", err)
			}
		})
	}
}

func TestStore_Purge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(clock.Now)
	defer s.Close()

	s.CheckAndInsert(ctx, "short", []byte("a"), time.Minute)
	s.CheckAndInsert(ctx, "long", []byte("b"), time.Hour)
	s.CheckAndInsert(ctx, "forever", []byte("c"), 0)

	clock.Advance(10 * time.Minute)

	removed, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 purged entry, got %d", removed)
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 remaining entries, got %d", s.Len())
	}
}

func TestSQLiteStore_Purge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "p.db"), Clock: clock.Now})
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer s.Close()

	s.CheckAndInsert(ctx, "a", nil, time.Minute)
	s.CheckAndInsert(ctx, "b", nil, time.Minute)
	s.CheckAndInsert(ctx, "c", nil, time.Hour)
	clock.Advance(5 * time.Minute)

	removed, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 purged entries, got %d", removed)
	}
}

func TestMemoryStore_ConcurrentCheckAndInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	defer s.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, inserted, err := s.CheckAndInsert(ctx, "dedup:shared", []byte("x"), time.Hour)
			if err != nil {
				t.Errorf("CheckAndInsert failed: %v", err)
				return
			}
			if inserted {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins.Load())
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(nil)
	s.Close()

	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: Config{}},
		{name: "memory", cfg: Config{Backend: BackendMemory}},
		{name: "sqlite", cfg: Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "o.db")}},
		{name: "sqlite without path", cfg: Config{Backend: BackendSQLite}, wantErr: true},
		{name: "redis without addr", cfg: Config{Backend: BackendRedis}, wantErr: true},
		{name: "unknown", cfg: Config{Backend: "etcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			s.Close()
		})
	}
}

func TestPurgeScheduler_RunOnce(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(clock.Now)
	defer s.Close()
	s.CheckAndInsert(context.Background(), "k", nil, time.Second)
	clock.Advance(time.Minute)

	n, err := PurgeScheduler(s, "*/5 * * * *").RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged entry, got %d", n)
	}
}
