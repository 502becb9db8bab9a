package runtime

import (
	"time"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusRunning            Status = "RUNNING"
	StatusDone               Status = "DONE"
	StatusFailed             Status = "FAILED"
	StatusStepBudgetExceeded Status = "STEP_BUDGET_EXCEEDED"
)

// RouteReason explains why the interpreter moved to (or stopped at) a node.
type RouteReason string

const (
	// ReasonRouteMatched: a route condition selected the next node.
	ReasonRouteMatched RouteReason = "ROUTE_MATCHED"

	// ReasonNext: the node's first successor was taken.
	ReasonNext RouteReason = "NEXT"

	// ReasonEndOfPlan: the last node had no successor.
	ReasonEndOfPlan RouteReason = "END_OF_PLAN"

	// ReasonNoRouteMatched: the node had routes and none held.
	ReasonNoRouteMatched RouteReason = "NO_ROUTE_MATCHED"

	// ReasonStepBudgetExceeded: the step ceiling stopped the run.
	ReasonStepBudgetExceeded RouteReason = "STEP_BUDGET_EXCEEDED"

	// ReasonNodeMissing: the next node id is not in the plan.
	ReasonNodeMissing RouteReason = "NODE_MISSING"

	// ReasonHandlerFatal: a handler failed and the run was aborted.
	ReasonHandlerFatal RouteReason = "HANDLER_FATAL"
)

// Meta identifies a run.
type Meta struct {
	ExecutionID string
	TenantID    string
	WorkflowID  string
}

// Result is the outcome of Execute. For FAILED runs Output, RiskLevel and
// Decision are empty and RiskScore is zero.
type Result struct {
	ExecutionID string
	Status      Status
	RouteReason RouteReason

	// Steps is the number of nodes visited; Path lists them in order.
	Steps int
	Path  []string

	// LastNodeID is the node visited last.
	LastNodeID string

	Output    map[string]any
	RiskScore float64
	RiskLevel RiskLevel
	Decision  *string

	// Warnings holds non-fatal degradations such as missing handlers.
	Warnings []string

	// Error is the fatal error message for FAILED runs.
	Error string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Err maps the terminal status to an error: ErrStepBudgetExceeded for runs
// stopped by the ceiling, nil otherwise. Fatal errors are returned by
// Execute directly.
func (r *Result) Err() error {
	if r.Status == StatusStepBudgetExceeded {
		return ErrStepBudgetExceeded
	}
	return nil
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
