// Package tm adapts the transaction monitoring stages to workflow nodes.
//
// Every stage writes into data.tm. The key "transactions" holds the list the
// most recent stage produced; the next stage reads it, falling back to
// input.transactions, so stages can be arranged in any order.
package tm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/internal/values"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Namespace is the data namespace written by every stage.
const Namespace = "tm"

// CurrentKey holds the transaction list flowing between stages.
const CurrentKey = "transactions"

// Handlers holds the monitoring stage adapters.
type Handlers struct {
	pipeline *monitoring.Pipeline
	logger   *slog.Logger
}

// New creates the adapters. A nil pipeline uses a process-local store and
// no webhook poster.
func New(pipeline *monitoring.Pipeline) *Handlers {
	if pipeline == nil {
		pipeline = monitoring.NewPipeline(store.NewMemoryStore(nil), nil)
	}
	return &Handlers{
		pipeline: pipeline,
		logger:   slog.Default().With("component", "nodes.tm"),
	}
}

// Register binds the five monitoring node types.
func (h *Handlers) Register(reg *runtime.Registry) error {
	bindings := map[workflow.NodeType]runtime.Handler{
		workflow.NodeTMSchemaValidate: h.SchemaValidate,
		workflow.NodeTMFXNormalize:    h.FXNormalize,
		workflow.NodeTMDeduplicate:    h.Deduplicate,
		workflow.NodeTMScenarioRule:   h.ScenarioRule,
		workflow.NodeTMCreateAlert:    h.CreateAlert,
	}
	for t, fn := range bindings {
		if err := reg.Register(t, fn); err != nil {
			return err
		}
	}
	return nil
}

// SchemaValidate segregates valid and invalid transactions.
func (h *Handlers) SchemaValidate(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg := monitoring.DefaultValidationConfig()
	if err := values.Decode(node.Config, &cfg); err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}

	res := h.pipeline.Validate(monitoring.Records(source(ec)), cfg)

	h.logger.Debug("transactions validated",
		"execution_id", ec.ExecutionID,
		"valid", len(res.Valid),
		"invalid", len(res.Invalid),
		"warnings", len(res.Warnings),
	)

	return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{
		"validTransactions":   res.Valid,
		"invalidTransactions": res.Invalid,
		"validationErrors":    res.Errors,
		"validationWarnings":  res.Warnings,
		"validCount":          len(res.Valid),
		"invalidCount":        len(res.Invalid),
		CurrentKey:            res.Valid,
	}), nil
}

// FXNormalize converts amounts into the base currency.
func (h *Handlers) FXNormalize(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg := monitoring.DefaultFXConfig()
	if err := values.Decode(node.Config, &cfg); err != nil {
		return nil, fmt.Errorf("fx normalize: %w", err)
	}

	txns, skipped := monitoring.DecodeTransactions(source(ec))
	res := h.pipeline.Normalize(txns, cfg)
	if len(res.Issues) > 0 || skipped > 0 {
		h.logger.Warn("fx normalization degraded",
			"execution_id", ec.ExecutionID,
			"issues", len(res.Issues),
			"blocked", len(res.Blocked),
			"skipped", skipped,
		)
	}

	return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{
		"normalizedTransactions": res.Normalized,
		"fxBlocked":              res.Blocked,
		"fxIssues":               res.Issues,
		"baseCurrency":           res.BaseCurrency,
		CurrentKey:               res.Normalized,
	}), nil
}

// Deduplicate drops or flags transactions seen within the TTL.
func (h *Handlers) Deduplicate(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg := monitoring.DefaultDedupConfig()
	if err := values.Decode(node.Config, &cfg); err != nil {
		return nil, fmt.Errorf("deduplicate: %w", err)
	}

	txns, _ := monitoring.DecodeTransactions(source(ec))
	res, err := h.pipeline.Deduplicate(ctx, ec.TenantID, txns, cfg)
	if err != nil {
		return nil, fmt.Errorf("deduplicate: %w", err)
	}

	return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{
		"uniqueTransactions":       res.Unique,
		"duplicates":               res.Duplicates,
		"duplicateCount":           len(res.Duplicates),
		"duplicateAlertCandidates": res.AlertCandidates,
		"dedupPurged":              res.Purged,
		CurrentKey:                 res.Output,
	}), nil
}

// ScenarioRule evaluates the scenario rules per customer.
func (h *Handlers) ScenarioRule(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg := monitoring.DefaultScenarioConfig()
	if err := values.Decode(node.Config, &cfg); err != nil {
		return nil, fmt.Errorf("scenario rule: %w", err)
	}

	txns, _ := monitoring.DecodeTransactions(source(ec))
	res, err := h.pipeline.EvaluateScenarios(ctx, ec.TenantID, txns, cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario rule: %w", err)
	}

	if len(res.Hits) > 0 {
		h.logger.Info("scenario rules triggered",
			"execution_id", ec.ExecutionID,
			"hits", len(res.Hits),
			"suppressed", res.Suppressed,
		)
	}

	return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{
		"ruleHits":       res.Hits,
		"ruleHitCount":   len(res.Hits),
		"metrics":        res.Metrics,
		"suppressedHits": res.Suppressed,
	}), nil
}

// CreateAlert groups the rule hits into alerts.
func (h *Handlers) CreateAlert(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg := monitoring.DefaultAlertConfig()
	if err := values.Decode(node.Config, &cfg); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	var hits []monitoring.RuleHit
	if raw, ok := values.Path(ec.Data, Namespace, "ruleHits"); ok {
		if err := values.Convert(raw, &hits); err != nil {
			return nil, fmt.Errorf("create alert: decode rule hits: %w", err)
		}
	}

	res, err := h.pipeline.CreateAlerts(ctx, ec.TenantID, hits, Customers(ec.Input), cfg)
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	for _, n := range res.Notifications {
		if !n.Delivered {
			h.logger.Warn("alert notification failed",
				"execution_id", ec.ExecutionID,
				"alert_id", n.AlertID,
				"error", n.Error,
			)
		}
	}

	alerts := res.Alerts()
	return runtime.NewUpdate().Extend(ec, Namespace, map[string]any{
		"alerts":        alerts,
		"alertCount":    len(alerts),
		"alertsCreated": len(res.Created),
		"alertsUpdated": len(res.Updated),
		"notifications": res.Notifications,
	}), nil
}

// source returns the current transaction list, or input.transactions when no
// stage has run yet.
func source(ec *runtime.ExecutionContext) any {
	if v, ok := values.Path(ec.Data, Namespace, CurrentKey); ok {
		return v
	}
	return ec.Input["transactions"]
}

// Customers reads customer context from input.customers (a list, or a map
// keyed by customer id) and input.customer.
func Customers(input map[string]any) map[string]monitoring.CustomerContext {
	out := map[string]monitoring.CustomerContext{}

	switch raw := input["customers"].(type) {
	case map[string]any:
		for id, v := range raw {
			var c monitoring.CustomerContext
			if err := values.Convert(v, &c); err != nil {
				continue
			}
			if c.CustomerID == "" {
				c.CustomerID = id
			}
			out[c.CustomerID] = c
		}
	case []any:
		for _, v := range raw {
			var c monitoring.CustomerContext
			if err := values.Convert(v, &c); err == nil && c.CustomerID != "" {
				out[c.CustomerID] = c
			}
		}
	}

	if raw, ok := input["customer"]; ok {
		var c monitoring.CustomerContext
		if err := values.Convert(raw, &c); err == nil && c.CustomerID != "" {
			out[c.CustomerID] = c
		}
	}
	return out
}
