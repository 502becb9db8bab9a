package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
)

// MemoryStore implements audit.Store using an in-memory slice.
type MemoryStore struct {
	events []*audit.Event
	closed bool
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a copy of the event. A missing ID is generated.
func (s *MemoryStore) Append(ctx context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError("memory", "append", audit.ErrStoreClosed)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	eventCopy := *event
	s.events = append(s.events, &eventCopy)
	return nil
}

// QueryByExecution returns the execution's events ordered by time.
func (s *MemoryStore) QueryByExecution(ctx context.Context, executionID string) ([]*audit.Event, error) {
	return s.Query(ctx, &audit.Query{ExecutionID: executionID})
}

// Query returns events matching the filters, oldest first unless Descending.
func (s *MemoryStore) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "query", audit.ErrStoreClosed)
	}

	results := []*audit.Event{}
	for _, event := range s.events {
		if query.Matches(event) {
			eventCopy := *event
			results = append(results, &eventCopy)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if query != nil && query.Descending {
			return audit.Less(results[j], results[i])
		}
		return audit.Less(results[i], results[j])
	})

	if query == nil {
		return results, nil
	}

	start := query.Offset
	if start > len(results) {
		return []*audit.Event{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of events matching the filters.
func (s *MemoryStore) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, event := range s.events {
		if query.Matches(event) {
			count++
		}
	}
	return count, nil
}

// Delete removes events matching the filters.
func (s *MemoryStore) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, event := range s.events {
		if query.Matches(event) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return deleted, nil
}

// Close releases the stored events.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.closed = true
	return nil
}
