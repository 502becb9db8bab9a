package compiler

import "fmt"

// ErrorKind classifies compilation failures.
type ErrorKind string

const (
	// KindCycleOrNoEntry indicates a non-empty graph with no root node.
	KindCycleOrNoEntry ErrorKind = "CycleOrNoEntry"

	// KindMalformedGraph indicates structural problems: duplicate or empty
	// node ids, edges referencing unknown nodes, or unreadable gate routes.
	KindMalformedGraph ErrorKind = "MalformedGraph"
)

// CompileError is returned when a graph cannot be compiled.
type CompileError struct {
	Kind    ErrorKind
	NodeID  string
	EdgeID  string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("compile error [%s] node %q: %s", e.Kind, e.NodeID, e.Message)
	case e.EdgeID != "":
		return fmt.Sprintf("compile error [%s] edge %q: %s", e.Kind, e.EdgeID, e.Message)
	default:
		return fmt.Sprintf("compile error [%s]: %s", e.Kind, e.Message)
	}
}

// Is matches another *CompileError by Kind, so callers can test
// errors.Is(err, compiler.ErrCycleOrNoEntry).
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel values for errors.Is.
var (
	ErrCycleOrNoEntry = &CompileError{Kind: KindCycleOrNoEntry}
	ErrMalformedGraph = &CompileError{Kind: KindMalformedGraph}
)

func malformed(nodeID, edgeID, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:    KindMalformedGraph,
		NodeID:  nodeID,
		EdgeID:  edgeID,
		Message: fmt.Sprintf(format, args...),
	}
}
