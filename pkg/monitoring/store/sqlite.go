package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS monitoring_entries (
	key TEXT PRIMARY KEY,
	value BLOB,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monitoring_entries_expires ON monitoring_entries(expires_at);
`

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Required.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Clock overrides time.Now.
	Clock Clock
}

// SQLiteStore persists entries in SQLite.
//
// The pool is limited to one connection, which serializes every
// transaction and makes Update atomic per key (and globally).
type SQLiteStore struct {
	db        *sql.DB
	now       Clock
	closeOnce sync.Once
}

// NewSQLiteStore opens (or creates) the database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newBackendError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, newBackendError("sqlite", "init schema", err)
	}

	return &SQLiteStore{db: db, now: cfg.Clock}, nil
}

// CheckAndInsert implements Store.
func (s *SQLiteStore) CheckAndInsert(ctx context.Context, key string, value []byte, ttl time.Duration) (*Entry, bool, error) {
	var existing *Entry
	inserted := false
	_, err := s.Update(ctx, key, func(cur *Entry) (*Entry, error) {
		if cur != nil {
			existing = cur
			return nil, nil
		}
		now := s.now()
		inserted = true
		return &Entry{Key: key, Value: value, CreatedAt: now, ExpiresAt: expiry(now, ttl)}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return existing, inserted, nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, key string, fn UpdateFunc) (*Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, newBackendError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	cur, err := s.load(ctx, tx, key)
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
	if next.CreatedAt.IsZero() {
		next.CreatedAt = s.now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO monitoring_entries (key, value, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, next.Value, next.CreatedAt.UnixNano(), unixNano(next.ExpiresAt))
	if err != nil {
		return nil, newBackendError("sqlite", "upsert", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, newBackendError("sqlite", "commit", err)
	}
	return copyEntry(next), nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	return s.load(ctx, s.db, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, key string) (*Entry, error) {
	var (
		value     []byte
		createdAt int64
		expiresAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT value, created_at, expires_at FROM monitoring_entries WHERE key = ?`, key,
	).Scan(&value, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, newBackendError("sqlite", "load", err)
	}

	e := &Entry{Key: key, Value: value, CreatedAt: time.Unix(0, createdAt)}
	if expiresAt > 0 {
		e.ExpiresAt = time.Unix(0, expiresAt)
	}
	if e.Expired(s.now()) {
		return nil, nil
	}
	return e, nil
}

// Purge implements Store.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM monitoring_entries WHERE expires_at > 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, newBackendError("sqlite", "purge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newBackendError("sqlite", "purge", err)
	}
	return n, nil
}

// Close implements Store. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
