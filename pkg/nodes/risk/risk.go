// Package risk implements the scoring, routing and decision node handlers.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes/internal/values"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/notify"
	scoring "github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/risk"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Decisions written by the decision nodes.
const (
	DecisionApprove      = "APPROVE"
	DecisionReject       = "REJECT"
	DecisionManualReview = "MANUAL_REVIEW"
)

// DefaultRouteID identifies the route compiled from a gate's defaultRoute.
const DefaultRouteID = "default"

// Poster delivers callback payloads.
type Poster interface {
	Post(ctx context.Context, url string, payload any) (*notify.Delivery, error)
}

// Handlers holds the risk and decision handlers.
type Handlers struct {
	scoring scoring.Config
	poster  Poster
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the handlers. cfg is the base scoring configuration that node
// config overlays. poster may be nil, in which case callbacks are recorded
// as not sent.
func New(cfg scoring.Config, poster Poster) *Handlers {
	if cfg.Weights == nil {
		cfg.Weights = scoring.DefaultWeights()
	}
	if cfg.Thresholds == (scoring.Thresholds{}) {
		cfg.Thresholds = scoring.DefaultThresholds()
	}
	return &Handlers{
		scoring: cfg,
		poster:  poster,
		logger:  slog.Default().With("component", "nodes.risk"),
		now:     time.Now,
	}
}

// Register binds the risk, decision, callback and audit node types.
func (h *Handlers) Register(reg *runtime.Registry) error {
	bindings := map[workflow.NodeType]runtime.Handler{
		workflow.NodeRiskCalculator:       h.Calculate,
		workflow.NodeRiskGate:             h.Gate,
		workflow.NodeDecisionApprove:      h.Decide(DecisionApprove),
		workflow.NodeDecisionReject:       h.Decide(DecisionReject),
		workflow.NodeDecisionManualReview: h.Decide(DecisionManualReview),
		workflow.NodeCallbackWebhook:      h.Callback,
		workflow.NodeAuditLog:             h.AuditLog,
	}
	for t, fn := range bindings {
		if err := reg.Register(t, fn); err != nil {
			return err
		}
	}
	return nil
}

// CalculatorConfig is the RISK_CALCULATOR node configuration. Weights
// override individual factors of the base configuration.
type CalculatorConfig struct {
	Weights         map[string]float64  `json:"weights"`
	Thresholds      *scoring.Thresholds `json:"thresholds"`
	ScoreMultiplier float64             `json:"scoreMultiplier"`
	ScoreFloor      float64             `json:"scoreFloor"`
}

// ScoringConfig overlays the node configuration onto the base configuration.
func (h *Handlers) ScoringConfig(node *workflow.CompiledNode) (scoring.Config, error) {
	var nc CalculatorConfig
	if err := values.Decode(node.Config, &nc); err != nil {
		return scoring.Config{}, err
	}

	cfg := scoring.Config{
		Weights:         scoring.Weights{},
		Thresholds:      h.scoring.Thresholds,
		ScoreMultiplier: h.scoring.ScoreMultiplier,
		ScoreFloor:      h.scoring.ScoreFloor,
	}
	for f, w := range h.scoring.Weights {
		cfg.Weights[f] = w
	}
	for name, w := range nc.Weights {
		cfg.Weights[scoring.Factor(name)] = w
	}
	if nc.Thresholds != nil {
		cfg.Thresholds = *nc.Thresholds
	}
	if nc.ScoreMultiplier > 0 {
		cfg.ScoreMultiplier = nc.ScoreMultiplier
	}
	if nc.ScoreFloor > 0 {
		cfg.ScoreFloor = nc.ScoreFloor
	}
	return cfg, cfg.Validate()
}

// Calculate scores the indicators accumulated so far and sets the run's
// risk score and level.
func (h *Handlers) Calculate(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	cfg, err := h.ScoringConfig(node)
	if err != nil {
		return nil, fmt.Errorf("risk calculator config: %w", err)
	}

	assessment := scoring.Score(Indicators(ec), cfg)

	breakdown := map[string]any{}
	if err := values.Convert(assessment, &breakdown); err != nil {
		return nil, fmt.Errorf("encode risk breakdown: %w", err)
	}
	breakdown["timestamp"] = h.now().UTC().Format(time.RFC3339)

	h.logger.Info("risk calculated",
		"execution_id", ec.ExecutionID,
		"score", assessment.FinalScore,
		"level", assessment.Level,
		"hits", assessment.HitCount,
		"factors", assessment.TotalFactors,
	)

	return runtime.NewUpdate().
		WithRiskScore(assessment.FinalScore).
		WithRiskLevel(runtime.RiskLevel(assessment.Level)).
		Set("risk", map[string]any{
			"score":     assessment.FinalScore,
			"level":     string(assessment.Level),
			"breakdown": breakdown,
		}), nil
}

// Indicators collects risk signals from the context. Every factor also
// honours an explicit flag in the run input.
func Indicators(ec *runtime.ExecutionContext) scoring.Indicators {
	d, in := ec.Data, ec.Input

	ind := scoring.Indicators{
		SanctionsHit: values.IsTrue(d, "aml", "SANCTIONS", "hit") ||
			values.IsTrue(d, "aml", "sanctions", "hit") ||
			values.IsTrue(in, "sanctionsHit"),
		PEPHit: values.IsTrue(d, "aml", "PEP", "hit") ||
			values.IsTrue(d, "aml", "pep", "hit") ||
			values.IsTrue(in, "pepHit"),
		WatchlistHit: values.IsTrue(d, "aml", "WATCHLIST", "hit") ||
			values.IsTrue(d, "aml", "watchlist", "hit") ||
			values.IsTrue(in, "watchlistHit"),
		AdverseMediaHit: values.IsTrue(d, "aml", "ADVERSE_MEDIA", "hit") ||
			values.IsTrue(d, "aml", "MEDIA", "hit") ||
			values.IsTrue(d, "aml", "adverseMedia", "hit") ||
			values.IsTrue(in, "adverseMediaHit"),
		FraudCheckFailed: values.IsFalse(d, "fraudCheck", "passed") ||
			values.IsFalse(d, "kyc", "fraudCheck", "passed") ||
			values.IsTrue(in, "fraudCheckFailed"),
		LivenessCheckFailed: values.IsFalse(d, "liveness", "passed") ||
			values.IsFalse(d, "kyc", "liveness", "passed") ||
			values.IsTrue(in, "livenessCheckFailed"),
		FaceMatchFailed: values.IsFalse(d, "faceMatch", "matched") ||
			values.IsFalse(d, "kyc", "faceMatch", "matched") ||
			values.IsTrue(in, "faceMatchFailed"),
		HighRiskCorridor: values.IsTrue(in, "highRiskCorridor"),
	}

	ind.TMAlertCount = values.Count(d, "tm", "alertCount")
	if ind.TMAlertCount == 0 {
		ind.TMAlertCount = values.Count(d, "tm", "alerts")
	}
	ind.TMRuleHitCount = values.Count(d, "tm", "ruleHitCount")
	if ind.TMRuleHitCount == 0 {
		ind.TMRuleHitCount = values.Count(d, "tm", "ruleHits")
	}

	if raw, ok := values.Path(d, "tm", "ruleHits"); ok {
		var hits []struct {
			RuleType monitoring.ScenarioType `json:"ruleType"`
			Severity monitoring.Severity     `json:"severity"`
		}
		if err := values.Convert(raw, &hits); err == nil {
			for _, hit := range hits {
				switch hit.Severity {
				case monitoring.SeverityCritical:
					ind.TMCriticalHits++
				case monitoring.SeverityHigh:
					ind.TMHighHits++
				}
				if hit.RuleType == monitoring.ScenarioHighRiskCorridor {
					ind.HighRiskCorridor = true
				}
			}
			if ind.TMRuleHitCount == 0 {
				ind.TMRuleHitCount = len(hits)
			}
		}
	}
	return ind
}

// Gate records which configured route matched. The interpreter performs the
// actual branching with the same evaluator.
func (h *Handlers) Gate(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	configured := configuredRoutes(node.Config)

	var matched any
	reason := "No route matched"
	route, idx, ok := runtime.MatchRoute(node.Routes, ec)
	if ok {
		id := DefaultRouteID
		if idx < len(configured) {
			id = routeID(configured[idx], idx)
			reason = fmt.Sprintf("Condition %q matched (risk level %s, score %.3f)", route.Condition, ec.RiskLevel, ec.RiskScore)
		} else {
			reason = "Default route (no specific condition matched)"
		}
		matched = map[string]any{
			"id":           id,
			"condition":    route.Condition,
			"targetNodeId": route.TargetID,
		}
	}

	h.logger.Debug("risk gate evaluated",
		"execution_id", ec.ExecutionID,
		"node_id", node.ID,
		"risk_level", ec.RiskLevel,
		"matched", ok,
		"target", route.TargetID,
	)

	return runtime.NewUpdate().Set("riskGate", map[string]any{
		"evaluated":         true,
		"riskLevel":         string(ec.RiskLevel),
		"riskScore":         ec.RiskScore,
		"matchedRoute":      matched,
		"routeReason":       reason,
		"recommendedAction": RecommendedAction(ec.RiskLevel),
		"configuredRoutes":  len(configured),
		"timestamp":         h.now().UTC().Format(time.RFC3339),
	}), nil
}

// RecommendedAction maps a risk level to the decision it suggests.
func RecommendedAction(level runtime.RiskLevel) string {
	switch level {
	case runtime.RiskHigh:
		return DecisionReject
	case runtime.RiskMedium:
		return DecisionManualReview
	default:
		return DecisionApprove
	}
}

func configuredRoutes(cfg map[string]any) []map[string]any {
	switch list := cfg["routes"].(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			m, _ := item.(map[string]any)
			out = append(out, m)
		}
		return out
	}
	return nil
}

func routeID(route map[string]any, idx int) string {
	switch id := route["id"].(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%g", id)
	case int:
		return fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%d", idx+1)
}

// Decide returns a handler that sets the run decision.
func (h *Handlers) Decide(decision string) runtime.Handler {
	return func(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
		return runtime.NewUpdate().
			WithDecision(decision).
			Set("finalDecision", map[string]any{
				"status":    decision,
				"timestamp": h.now().UTC().Format(time.RFC3339),
			}), nil
	}
}

// CallbackPayload is the execution summary posted by CALLBACK_WEBHOOK.
type CallbackPayload struct {
	ExecutionID string         `json:"executionId"`
	TenantID    string         `json:"tenantId"`
	WorkflowID  string         `json:"workflowId"`
	RiskScore   float64        `json:"riskScore"`
	RiskLevel   string         `json:"riskLevel"`
	Decision    *string        `json:"decision"`
	Data        map[string]any `json:"data,omitempty"`
	SentAt      time.Time      `json:"sentAt"`
}

// Callback posts the execution summary to the configured url. Delivery
// failures are recorded, never returned.
func (h *Handlers) Callback(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	url, _ := node.Config["url"].(string)
	record := map[string]any{"sent": false, "url": url}

	switch {
	case url == "":
		record["error"] = "no callback url configured"
	case h.poster == nil:
		record["error"] = "no notifier configured"
	default:
		payload := CallbackPayload{
			ExecutionID: ec.ExecutionID,
			TenantID:    ec.TenantID,
			WorkflowID:  ec.WorkflowID,
			RiskScore:   ec.RiskScore,
			RiskLevel:   string(ec.RiskLevel),
			Decision:    ec.Decision,
			SentAt:      h.now().UTC(),
		}
		if include, ok := node.Config["includeData"].(bool); ok && include {
			payload.Data = ec.Data
		}
		delivery, err := h.poster.Post(ctx, url, payload)
		if err != nil {
			h.logger.Warn("callback delivery failed",
				"execution_id", ec.ExecutionID,
				"url", url,
				"error", err,
			)
			record["error"] = err.Error()
			break
		}
		record["sent"] = true
		record["statusCode"] = delivery.StatusCode
		record["attempts"] = delivery.Attempts
	}

	return runtime.NewUpdate().Set("callback", record), nil
}

// AuditLog is an explicit audit step. The interpreter already records every
// node, so it changes nothing.
func (h *Handlers) AuditLog(ctx context.Context, node *workflow.CompiledNode, ec *runtime.ExecutionContext) (*runtime.Update, error) {
	return runtime.NewUpdate(), nil
}
