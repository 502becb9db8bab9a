package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Entry is a stored value with an expiry.
type Entry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer live at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// UpdateFunc receives the live entry for a key (nil when absent or expired)
// and returns the entry to store. Returning nil leaves the key unchanged.
type UpdateFunc func(current *Entry) (*Entry, error)

// Store is a keyed store with expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// CheckAndInsert stores value under key with the given ttl unless a live
	// entry already exists. It returns inserted=true when the value was
	// stored, otherwise the existing entry.
	CheckAndInsert(ctx context.Context, key string, value []byte, ttl time.Duration) (existing *Entry, inserted bool, err error)

	// Update applies fn to the live entry for key atomically.
	Update(ctx context.Context, key string, fn UpdateFunc) (*Entry, error)

	// Get returns the live entry for key, or nil.
	Get(ctx context.Context, key string) (*Entry, error)

	// Purge removes expired entries and returns how many were removed.
	Purge(ctx context.Context) (int64, error)

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

// Clock returns the current time. Backends that track expiry themselves
// use it so tests can move time forward.
type Clock func() time.Time

// BackendError wraps a failure in a store backend.
type BackendError struct {
	Backend string
	Op      string
	Cause   error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

func newBackendError(backend, op string, cause error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Cause: cause}
}

func copyEntry(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	out := *e
	if e.Value != nil {
		out.Value = append([]byte(nil), e.Value...)
	}
	return &out
}
