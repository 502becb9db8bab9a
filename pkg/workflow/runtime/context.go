package runtime

import (
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/condition"
)

// RiskLevel is the coarse risk classification of a run.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ExecutionContext is the state of one run. It is owned by the interpreter;
// handlers read it and describe changes by returning an Update.
type ExecutionContext struct {
	ExecutionID string
	TenantID    string
	WorkflowID  string

	// Input is the caller-supplied input document. Never modified.
	Input map[string]any

	// Data accumulates handler output by namespace (aml, risk, tm, ...).
	Data map[string]any

	RiskScore float64
	RiskLevel RiskLevel
	Decision  *string
}

// NewExecutionContext returns a context with an empty data accumulator,
// score 0 and level LOW.
func NewExecutionContext(meta Meta, input map[string]any) *ExecutionContext {
	if input == nil {
		input = map[string]any{}
	}
	return &ExecutionContext{
		ExecutionID: meta.ExecutionID,
		TenantID:    meta.TenantID,
		WorkflowID:  meta.WorkflowID,
		Input:       input,
		Data:        map[string]any{},
		RiskLevel:   RiskLow,
	}
}

// Lookup exposes the routable fields to the condition evaluator.
func (c *ExecutionContext) Lookup(ident string) (any, bool) {
	switch ident {
	case "riskScore":
		return c.RiskScore, true
	case "riskLevel":
		return string(c.RiskLevel), true
	case "decision":
		if c.Decision == nil {
			return nil, false
		}
		return *c.Decision, true
	default:
		return nil, false
	}
}

var _ condition.Env = (*ExecutionContext)(nil)

// Namespace returns a shallow copy of the map stored at Data[name], or an
// empty map when the namespace is absent or not a map.
func (c *ExecutionContext) Namespace(name string) map[string]any {
	out := map[string]any{}
	if ns, ok := c.Data[name].(map[string]any); ok {
		for k, v := range ns {
			out[k] = v
		}
	}
	return out
}

// Update is the partial context change returned by a handler. Nil fields
// leave the context untouched.
type Update struct {
	RiskScore *float64
	RiskLevel *RiskLevel
	Decision  *string

	// Data entries replace the namespace of the same name.
	Data map[string]any
}

// NewUpdate returns an empty update.
func NewUpdate() *Update {
	return &Update{Data: map[string]any{}}
}

// WithRiskScore sets the run's risk score.
func (u *Update) WithRiskScore(score float64) *Update {
	u.RiskScore = &score
	return u
}

// WithRiskLevel sets the run's risk level.
func (u *Update) WithRiskLevel(level RiskLevel) *Update {
	u.RiskLevel = &level
	return u
}

// WithDecision sets the run's decision.
func (u *Update) WithDecision(decision string) *Update {
	u.Decision = &decision
	return u
}

// Set replaces namespace name with value.
func (u *Update) Set(name string, value any) *Update {
	if u.Data == nil {
		u.Data = map[string]any{}
	}
	u.Data[name] = value
	return u
}

// Extend writes fields into namespace name on top of the namespace's current
// content in c, so sibling keys written by earlier steps survive.
func (u *Update) Extend(c *ExecutionContext, name string, fields map[string]any) *Update {
	ns := c.Namespace(name)
	if pending, ok := u.Data[name].(map[string]any); ok {
		for k, v := range pending {
			ns[k] = v
		}
	}
	for k, v := range fields {
		ns[k] = v
	}
	return u.Set(name, ns)
}

// MergeUpdate applies u to c. Scalar fields overwrite. Data is merged by
// namespace: each top-level key of u.Data replaces the same key of c.Data and
// every other namespace is left untouched. Later writes win.
func MergeUpdate(c *ExecutionContext, u *Update) {
	if u == nil {
		return
	}
	if u.RiskScore != nil {
		c.RiskScore = *u.RiskScore
	}
	if u.RiskLevel != nil {
		c.RiskLevel = *u.RiskLevel
	}
	if u.Decision != nil {
		d := *u.Decision
		c.Decision = &d
	}
	c.Data = MergeData(c.Data, u.Data)
}

// MergeData returns a new map holding dst overlaid with src at the first
// level. Neither argument is modified.
func MergeData(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
