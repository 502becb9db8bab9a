package monitoring

import (
	"context"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
)

// Observer receives counts from the stateful stages.
type Observer interface {
	ObserveDuplicates(behavior DuplicateBehavior, n int)
	ObserveRuleHit(ruleType ScenarioType, severity Severity)
	ObserveAlerts(created, updated int)
}

// Pipeline bundles the stages that share a keyed store.
type Pipeline struct {
	Dedup    *Deduplicator
	Scenario *ScenarioEngine
	Alerts   *Alerter
	Now      func() time.Time

	observer Observer
}

// NewPipeline wires the stateful stages to one store. poster may be nil.
func NewPipeline(s store.Store, poster Poster) *Pipeline {
	return &Pipeline{
		Dedup:    NewDeduplicator(s),
		Scenario: NewScenarioEngine(s),
		Alerts:   NewAlerter(s, poster),
		Now:      time.Now,
	}
}

// SetObserver attaches an observer.
func (p *Pipeline) SetObserver(o Observer) {
	p.observer = o
}

// SetClock replaces the clock of every stage.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.Now = now
	p.Dedup.now = now
	p.Scenario.now = now
	p.Alerts.now = now
}

// Validate runs schema validation at the pipeline clock.
func (p *Pipeline) Validate(records []map[string]any, cfg ValidationConfig) *ValidationResult {
	return Validate(records, cfg, p.Now())
}

// Normalize runs FX normalization.
func (p *Pipeline) Normalize(txns []Transaction, cfg FXConfig) *NormalizeResult {
	return Normalize(txns, cfg)
}

// Deduplicate runs the deduplicator. Duplicates are observed under the
// effective behavior, after defaults.
func (p *Pipeline) Deduplicate(ctx context.Context, tenant string, txns []Transaction, cfg DedupConfig) (*DedupResult, error) {
	cfg = cfg.WithDefaults()
	res, err := p.Dedup.Run(ctx, tenant, txns, cfg)
	if err == nil && p.observer != nil && len(res.Duplicates) > 0 {
		p.observer.ObserveDuplicates(cfg.DuplicateBehavior, len(res.Duplicates))
	}
	return res, err
}

// EvaluateScenarios runs scenario rules.
func (p *Pipeline) EvaluateScenarios(ctx context.Context, tenant string, txns []Transaction, cfg ScenarioConfig) (*ScenarioResult, error) {
	res, err := p.Scenario.Evaluate(ctx, tenant, txns, cfg)
	if err == nil && p.observer != nil {
		for _, h := range res.Hits {
			p.observer.ObserveRuleHit(h.RuleType, h.Severity)
		}
	}
	return res, err
}

// CreateAlerts groups hits into alerts.
func (p *Pipeline) CreateAlerts(ctx context.Context, tenant string, hits []RuleHit, customers map[string]CustomerContext, cfg AlertConfig) (*AlertResult, error) {
	res, err := p.Alerts.Create(ctx, tenant, hits, customers, cfg)
	if err == nil && p.observer != nil {
		p.observer.ObserveAlerts(len(res.Created), len(res.Updated))
	}
	return res, err
}
