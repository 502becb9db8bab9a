package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// DefaultMaxSteps is the step ceiling applied when none is configured.
const DefaultMaxSteps = 50

// Node outcomes reported to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Observer receives per-node and per-run measurements.
type Observer interface {
	ObserveNode(nodeType workflow.NodeType, outcome string, duration time.Duration)
	ObserveRun(status Status, reason RouteReason, steps int, duration time.Duration)
}

// Options configures an Interpreter. Zero values select defaults.
type Options struct {
	// MaxSteps caps the number of nodes a run may visit. Default: 50.
	MaxSteps int

	Logger   *slog.Logger
	Audit    audit.Sink
	Observer Observer
	Tracer   trace.Tracer

	// Now is the clock used for audit timestamps. Default: time.Now.
	Now func() time.Time
}

// Interpreter executes compiled plans. It holds no per-run state and is safe
// for concurrent use.
type Interpreter struct {
	registry *Registry
	maxSteps int
	logger   *slog.Logger
	sink     audit.Sink
	observer Observer
	tracer   trace.Tracer
	now      func() time.Time
}

// NewInterpreter creates an interpreter bound to registry.
func NewInterpreter(registry *Registry, opts Options) *Interpreter {
	if registry == nil {
		registry = NewRegistry()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Interpreter{
		registry: registry,
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger.With("component", "workflow.runtime"),
		sink:     opts.Audit,
		observer: opts.Observer,
		tracer:   opts.Tracer,
		now:      opts.Now,
	}
}

// MaxSteps returns the configured step ceiling.
func (i *Interpreter) MaxSteps() int {
	return i.maxSteps
}

// Execute runs plan against input. It returns a Result for every run; the
// error is non-nil only for FAILED runs and is a *HandlerFatalError.
func (i *Interpreter) Execute(ctx context.Context, plan *workflow.Plan, input map[string]any, meta Meta) (*Result, error) {
	started := i.now()
	ec := NewExecutionContext(meta, input)
	logger := i.logger.With("execution_id", meta.ExecutionID, "workflow_id", meta.WorkflowID)
	trail := &trail{sink: i.sink, meta: meta, now: i.now, logger: logger}

	ctx, span := i.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String("kycaml.execution_id", meta.ExecutionID),
		attribute.String("kycaml.workflow_id", meta.WorkflowID),
	))
	defer span.End()

	result := &Result{
		ExecutionID: meta.ExecutionID,
		Status:      StatusRunning,
		Path:        []string{},
		StartedAt:   started,
	}

	current := ""
	if plan != nil {
		current = plan.EntryNodeID
	}
	reason := ReasonEndOfPlan

	for current != "" {
		if result.Steps >= i.maxSteps {
			reason = ReasonStepBudgetExceeded
			logger.Warn("step budget exceeded", "max_steps", i.maxSteps, "node_id", current)
			break
		}

		node := plan.Node(current)
		if node == nil {
			reason = ReasonNodeMissing
			logger.Warn("next node not found in plan", "node_id", current)
			break
		}

		result.Steps++
		result.Path = append(result.Path, node.ID)
		result.LastNodeID = node.ID

		next, stepReason, err := i.step(ctx, node, ec, trail, result)
		if err != nil {
			return i.fail(ctx, result, trail, span, err)
		}
		if next == "" {
			reason = stepReason
		}
		current = next
	}

	result.Status = StatusDone
	if reason == ReasonStepBudgetExceeded {
		result.Status = StatusStepBudgetExceeded
	}
	result.RouteReason = reason
	result.Output = ec.Data
	result.RiskScore = ec.RiskScore
	result.RiskLevel = ec.RiskLevel
	result.Decision = ec.Decision
	result.FinishedAt = i.now()

	trail.record(ctx, audit.EventRunEnd, nil, map[string]any{
		"status":      string(result.Status),
		"routeReason": string(reason),
		"steps":       result.Steps,
		"riskScore":   result.RiskScore,
		"riskLevel":   string(result.RiskLevel),
		"decision":    decisionValue(result.Decision),
	})

	span.SetAttributes(
		attribute.String("kycaml.status", string(result.Status)),
		attribute.Int("kycaml.steps", result.Steps),
	)
	if i.observer != nil {
		i.observer.ObserveRun(result.Status, reason, result.Steps, result.Duration())
	}

	logger.Info("workflow execution finished",
		"status", result.Status,
		"route_reason", reason,
		"steps", result.Steps,
		"risk_level", result.RiskLevel,
		"duration", result.Duration(),
	)
	return result, nil
}

// step runs one node and resolves its successor.
func (i *Interpreter) step(ctx context.Context, node *workflow.CompiledNode, ec *ExecutionContext, trail *trail, result *Result) (string, RouteReason, error) {
	ctx, span := i.tracer.Start(ctx, "workflow.node", trace.WithAttributes(
		attribute.String("kycaml.node_id", node.ID),
		attribute.String("kycaml.node_type", string(node.Type)),
	))
	defer span.End()

	trail.record(ctx, audit.EventNodeStart, node, nil)
	start := i.now()

	handler, ok := i.registry.Lookup(node.Type)
	outcome := OutcomeOK
	endPayload := map[string]any{}

	if !ok {
		outcome = OutcomeSkipped
		warning := fmt.Sprintf("no handler registered for node type %s", node.Type)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", node.ID, warning))
		endPayload["skipped"] = true
		endPayload["warning"] = warning
		trail.logger.Warn("no handler registered, skipping node", "node_id", node.ID, "node_type", node.Type)
	} else {
		update, err := invoke(ctx, handler, node, ec)
		if err != nil {
			fatal := &HandlerFatalError{NodeID: node.ID, NodeType: node.Type, Cause: err}
			span.RecordError(fatal)
			span.SetStatus(codes.Error, fatal.Error())
			trail.record(ctx, audit.EventError, node, map[string]any{
				"error": err.Error(),
				"fatal": true,
			})
			if i.observer != nil {
				i.observer.ObserveNode(node.Type, OutcomeError, i.now().Sub(start))
			}
			return "", ReasonHandlerFatal, fatal
		}
		MergeUpdate(ec, update)
		if update != nil && len(update.Data) > 0 {
			endPayload["namespaces"] = sortedKeys(update.Data)
		}
	}

	next, reason, routeIndex := resolveNext(node, ec)
	duration := i.now().Sub(start)

	endPayload["durationMs"] = duration.Milliseconds()
	endPayload["routeReason"] = string(reason)
	endPayload["riskScore"] = ec.RiskScore
	endPayload["riskLevel"] = string(ec.RiskLevel)
	if next != "" {
		endPayload["next"] = next
	}
	if routeIndex >= 0 {
		endPayload["matchedRoute"] = node.Routes[routeIndex].Condition
	}
	trail.record(ctx, audit.EventNodeEnd, node, endPayload)

	if i.observer != nil {
		i.observer.ObserveNode(node.Type, outcome, duration)
	}
	return next, reason, nil
}

// fail finalizes an aborted run. Accumulated context is discarded.
func (i *Interpreter) fail(ctx context.Context, result *Result, trail *trail, span trace.Span, err error) (*Result, error) {
	result.Status = StatusFailed
	result.RouteReason = ReasonHandlerFatal
	result.Error = err.Error()
	result.FinishedAt = i.now()

	trail.record(ctx, audit.EventRunEnd, nil, map[string]any{
		"status":      string(StatusFailed),
		"routeReason": string(ReasonHandlerFatal),
		"steps":       result.Steps,
		"error":       err.Error(),
	})

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if i.observer != nil {
		i.observer.ObserveRun(StatusFailed, ReasonHandlerFatal, result.Steps, result.Duration())
	}

	trail.logger.Error("workflow execution failed",
		"error", err,
		"node_id", result.LastNodeID,
		"steps", result.Steps,
	)
	return result, err
}

// invoke calls h, converting a panic into an error.
func invoke(ctx context.Context, h Handler, node *workflow.CompiledNode, ec *ExecutionContext) (update *Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, node, ec)
}

func decisionValue(d *string) any {
	if d == nil {
		return nil
	}
	return *d
}
