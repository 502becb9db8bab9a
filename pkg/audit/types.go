package audit

import (
	"context"
	"time"
)

// EventType classifies an audit event.
type EventType string

const (
	// EventNodeStart is emitted before a node handler runs.
	EventNodeStart EventType = "NODE_START"

	// EventNodeEnd is emitted after a node handler returns (or is skipped).
	EventNodeEnd EventType = "NODE_END"

	// EventError is emitted when a handler fails or a step is degraded.
	EventError EventType = "ERROR"

	// EventRunEnd is emitted once per execution with the terminal route reason.
	EventRunEnd EventType = "RUN_END"
)

// Event is a single entry of an execution audit trail.
type Event struct {
	// ID is a unique identifier for the event (UUID).
	ID string `json:"id"`

	// ExecutionID groups the events of one run.
	ExecutionID string `json:"executionId"`

	// TenantID is the owning tenant, if any.
	TenantID string `json:"tenantId,omitempty"`

	// Sequence orders events of one execution that share a timestamp.
	Sequence int64 `json:"sequence"`

	// NodeID is the plan node the event refers to. Empty for RUN_END.
	NodeID string `json:"nodeId,omitempty"`

	// NodeType is the node's type, if any.
	NodeType string `json:"nodeType,omitempty"`

	Type      EventType      `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Sink receives audit events as they are produced.
type Sink interface {
	Append(ctx context.Context, event *Event) error
}

// Store persists audit events and answers queries over them.
type Store interface {
	Sink

	// QueryByExecution returns every event of an execution ordered by
	// timestamp, then sequence.
	QueryByExecution(ctx context.Context, executionID string) ([]*Event, error)

	// Query returns events matching the filters.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes events matching the filters and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	Close() error
}

// Query filters audit events. Zero values mean "no filter".
type Query struct {
	ExecutionID string
	TenantID    string
	NodeID      string
	Types       []EventType

	// StartTime and EndTime bound Timestamp (inclusive).
	StartTime *time.Time
	EndTime   *time.Time

	// Limit caps the number of results. 0 means unlimited.
	Limit  int
	Offset int

	// Descending reverses the default oldest-first order.
	Descending bool
}

// Matches reports whether the event satisfies the query filters.
func (q *Query) Matches(e *Event) bool {
	if q == nil {
		return true
	}
	if q.ExecutionID != "" && e.ExecutionID != q.ExecutionID {
		return false
	}
	if q.TenantID != "" && e.TenantID != q.TenantID {
		return false
	}
	if q.NodeID != "" && e.NodeID != q.NodeID {
		return false
	}
	if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
		return false
	}
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Less orders events by timestamp, then sequence, then id.
func Less(a, b *Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.ID < b.ID
}
