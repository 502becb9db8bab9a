package runtime

import (
	"errors"
	"fmt"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// ErrStepBudgetExceeded is reported by Result.Err when a run was stopped by
// the step ceiling.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

// HandlerFatalError is returned when a handler fails or panics. The run is
// aborted with status FAILED.
type HandlerFatalError struct {
	NodeID   string
	NodeType workflow.NodeType
	Cause    error
}

// Error returns the error message.
func (e *HandlerFatalError) Error() string {
	return fmt.Sprintf("handler %s failed at node %s: %v", e.NodeType, e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *HandlerFatalError) Unwrap() error {
	return e.Cause
}
