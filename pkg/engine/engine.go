// Package engine is the service facade over the compiler, interpreter,
// persistence and audit trail.
//
// A workflow is saved as a draft graph, deployed (compiled and stored with
// its plan) and then started any number of times. Each start creates an
// execution record, runs the plan and writes back the outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// ErrNotDeployed is returned by Start for workflows without a deployed plan.
var ErrNotDeployed = errors.New("workflow is not deployed")

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// MaxSteps is the interpreter step ceiling. Default: 50.
	MaxSteps int

	Logger   *slog.Logger
	Observer runtime.Observer
	Tracer   trace.Tracer

	// Now is the clock for record timestamps. Default: time.Now.
	Now func() time.Time

	// NewID generates execution ids. Default: uuid.NewString.
	NewID func() string
}

// Engine deploys and runs workflows.
type Engine struct {
	repo   persistence.Repository
	audit  audit.Store
	interp *runtime.Interpreter
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates an engine. auditStore may be nil, in which case no audit trail
// is recorded and Get returns no events.
func New(repo persistence.Repository, auditStore audit.Store, registry *runtime.Registry, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	var sink audit.Sink
	if auditStore != nil {
		sink = auditStore
	}

	return &Engine{
		repo:  repo,
		audit: auditStore,
		interp: runtime.NewInterpreter(registry, runtime.Options{
			MaxSteps: opts.MaxSteps,
			Logger:   opts.Logger,
			Audit:    sink,
			Observer: opts.Observer,
			Tracer:   opts.Tracer,
			Now:      opts.Now,
		}),
		logger: opts.Logger.With("component", "engine"),
		now:    opts.Now,
		newID:  opts.NewID,
	}
}

// Save stores graph as the draft of workflow id, creating it when absent.
// Saving an existing workflow returns it to DRAFT until redeployed.
func (e *Engine) Save(ctx context.Context, id, tenantID, name string, graph *workflow.Graph) (*persistence.Workflow, error) {
	if id == "" {
		return nil, errors.New("workflow id is required")
	}
	now := e.now().UTC()

	existing, err := e.repo.GetWorkflow(ctx, id)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		w := &persistence.Workflow{
			ID:        id,
			TenantID:  tenantID,
			Name:      name,
			Status:    persistence.WorkflowDraft,
			Graph:     graph,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.repo.CreateWorkflow(ctx, w); err != nil {
			return nil, fmt.Errorf("create workflow: %w", err)
		}
		return w, nil
	case err != nil:
		return nil, fmt.Errorf("load workflow: %w", err)
	}

	existing.Graph = graph
	if name != "" {
		existing.Name = name
	}
	existing.Status = persistence.WorkflowDraft
	existing.UpdatedAt = now
	if err := e.repo.UpdateWorkflow(ctx, existing); err != nil {
		return nil, fmt.Errorf("update workflow: %w", err)
	}
	return existing, nil
}

// Deploy compiles the stored graph, bumps the version and stores the plan.
// A compile error is returned unchanged and nothing is persisted.
func (e *Engine) Deploy(ctx context.Context, workflowID string) (*persistence.Workflow, *compiler.Result, error) {
	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("load workflow: %w", err)
	}

	compiled, err := compiler.Compile(w.Graph)
	if err != nil {
		return nil, nil, err
	}

	now := e.now().UTC()
	w.Plan = compiled.Plan
	w.Inspection = compiled.Inspection
	w.Version++
	w.Status = persistence.WorkflowDeployed
	w.UpdatedAt = now
	w.DeployedAt = &now
	if err := e.repo.UpdateWorkflow(ctx, w); err != nil {
		return nil, nil, fmt.Errorf("store deployed workflow: %w", err)
	}

	for _, warning := range compiled.Warnings {
		e.logger.Warn("workflow compiled with warning",
			"workflow_id", w.ID,
			"node_id", warning.NodeID,
			"code", warning.Code,
			"message", warning.Message,
		)
	}
	e.logger.Info("workflow deployed",
		"workflow_id", w.ID,
		"version", w.Version,
		"nodes", len(compiled.Plan.Nodes),
		"entry", compiled.Plan.EntryNodeID,
	)
	return w, compiled, nil
}

// Start runs the deployed plan of workflowID against input. The returned
// execution reflects the final status. For FAILED runs the error is the
// *runtime.HandlerFatalError that aborted the run and the execution carries
// no score, level, decision or output.
func (e *Engine) Start(ctx context.Context, workflowID string, input map[string]any) (*persistence.Execution, error) {
	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	if w.Status != persistence.WorkflowDeployed || w.Plan == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNotDeployed)
	}

	exec := &persistence.Execution{
		ID:              e.newID(),
		TenantID:        w.TenantID,
		WorkflowID:      w.ID,
		WorkflowVersion: w.Version,
		Status:          runtime.StatusRunning,
		Input:           input,
		StartedAt:       e.now().UTC(),
	}
	if err := e.repo.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	res, runErr := e.interp.Execute(ctx, w.Plan, input, runtime.Meta{
		ExecutionID: exec.ID,
		TenantID:    w.TenantID,
		WorkflowID:  w.ID,
	})

	finished := e.now().UTC()
	exec.Status = res.Status
	exec.RouteReason = string(res.RouteReason)
	exec.Steps = res.Steps
	exec.FinishedAt = &finished
	if runErr != nil {
		exec.Error = res.Error
	} else {
		score := res.RiskScore
		exec.RiskScore = &score
		exec.RiskLevel = string(res.RiskLevel)
		exec.Decision = res.Decision
		exec.Output = res.Output
	}

	if err := e.repo.UpdateExecution(ctx, exec); err != nil {
		return exec, fmt.Errorf("store execution result: %w", err)
	}
	if runErr != nil {
		e.logger.Error("workflow execution failed",
			"workflow_id", w.ID,
			"execution_id", exec.ID,
			"error", runErr,
		)
		return exec, runErr
	}
	return exec, nil
}

// ExecutionView is an execution record with its audit trail.
type ExecutionView struct {
	Execution *persistence.Execution `json:"execution"`
	Events    []*audit.Event         `json:"events"`
}

// Get returns an execution and its audit events in sequence order.
func (e *Engine) Get(ctx context.Context, executionID string) (*ExecutionView, error) {
	exec, err := e.repo.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	view := &ExecutionView{Execution: exec, Events: []*audit.Event{}}
	if e.audit != nil {
		events, err := e.audit.QueryByExecution(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("query audit trail: %w", err)
		}
		view.Events = events
	}
	return view, nil
}

// Workflow returns a stored workflow.
func (e *Engine) Workflow(ctx context.Context, id string) (*persistence.Workflow, error) {
	return e.repo.GetWorkflow(ctx, id)
}

// Executions lists the executions of a workflow.
func (e *Engine) Executions(ctx context.Context, workflowID string) ([]*persistence.Execution, error) {
	return e.repo.ListExecutions(ctx, workflowID)
}
