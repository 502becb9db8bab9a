package audit

import (
	"errors"
	"testing"
	"time"
)

func TestQuery_Matches(t *testing.T) {
	now := time.Now()
	event := &Event{ExecutionID: "exec-1", TenantID: "t1", NodeID: "n1", Type: EventNodeEnd, Timestamp: now}
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	tests := []struct {
		name  string
		query *Query
		want  bool
	}{
		{"nil query", nil, true},
		{"empty query", &Query{}, true},
		{"execution match", &Query{ExecutionID: "exec-1"}, true},
		{"execution mismatch", &Query{ExecutionID: "exec-2"}, false},
		{"tenant mismatch", &Query{TenantID: "t2"}, false},
		{"node match", &Query{NodeID: "n1"}, true},
		{"type match", &Query{Types: []EventType{EventNodeStart, EventNodeEnd}}, true},
		{"type mismatch", &Query{Types: []EventType{EventError}}, false},
		{"inside range", &Query{StartTime: &before, EndTime: &after}, true},
		{"after end", &Query{EndTime: &before}, false},
		{"before start", &Query{StartTime: &after}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(event); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLess(t *testing.T) {
	now := time.Now()
	a := &Event{ID: "a", Timestamp: now, Sequence: 1}
	b := &Event{ID: "b", Timestamp: now, Sequence: 2}
	c := &Event{ID: "c", Timestamp: now.Add(time.Millisecond), Sequence: 0}

	if !Less(a, b) {
		t.Error("Expected lower sequence first for equal timestamps")
	}
	if !Less(b, c) {
		t.Error("Expected earlier timestamp first")
	}
	if Less(c, a) {
		t.Error("Expected later timestamp not to sort before earlier")
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("sqlite", "append", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected StorageError to unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("Expected non-empty error message")
	}
}
