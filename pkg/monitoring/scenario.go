package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
)

// Rule defaults applied when a rule omits its thresholds.
const (
	DefaultHighValueThreshold    = 10000
	DefaultFrequencyThreshold    = 10
	DefaultVelocityThreshold     = 50000
	DefaultStructuringBand       = 1000
	MinStructuringCount          = 3
	UnusualPatternMultiplier     = 3
	MinUnusualPatternHistory     = 3
	DefaultScenarioWindowMinutes = 60
)

// DefaultRiskCountries is the corridor list used when a HIGH_RISK_CORRIDOR
// rule names none.
var DefaultRiskCountries = []string{"IR", "KP", "SY", "CU", "RU", "AF", "MM", "VE"}

const cooldownKeyPrefix = "cooldown:"

// ScenarioConfig configures Evaluate. JSON names follow the node config.
type ScenarioConfig struct {
	WindowMinutes   int            `json:"windowMinutes"`
	Rules           []ScenarioRule `json:"rules"`
	MinimumTriggers int            `json:"minimumTriggers"`
	CooldownMinutes int            `json:"cooldownMinutes"`
}

// DefaultScenarioConfig returns a 60 minute window with the default rules.
func DefaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		WindowMinutes:   DefaultScenarioWindowMinutes,
		MinimumTriggers: 1,
	}
}

// DefaultRules is the rule set used when none are configured.
func DefaultRules() []ScenarioRule {
	return []ScenarioRule{
		{ID: "default_high_value", Name: "High value transaction", Type: ScenarioHighValue, AmountThreshold: DefaultHighValueThreshold, Severity: SeverityHigh},
		{ID: "default_high_frequency", Name: "High transaction frequency", Type: ScenarioHighFrequency, CountThreshold: DefaultFrequencyThreshold, WindowMinutes: 60, Severity: SeverityMedium},
		{ID: "default_velocity", Name: "High velocity", Type: ScenarioVelocity, VelocityThreshold: DefaultVelocityThreshold, WindowMinutes: 60, Severity: SeverityHigh},
		{ID: "default_structuring", Name: "Possible structuring", Type: ScenarioStructuring, AmountThreshold: DefaultHighValueThreshold, StructuringBand: DefaultStructuringBand, Severity: SeverityHigh},
		{ID: "default_high_risk_corridor", Name: "High risk corridor", Type: ScenarioHighRiskCorridor, RiskCountries: DefaultRiskCountries, Severity: SeverityCritical},
	}
}

// ScenarioResult holds the hits and the per-customer metrics they were
// computed from.
type ScenarioResult struct {
	Hits       []RuleHit                    `json:"hits"`
	Metrics    map[string]AggregatedMetrics `json:"metrics"`
	Suppressed int                          `json:"suppressed"`
}

// ScenarioEngine evaluates scenario rules. The store holds cooldown markers
// and may be nil when cooldowns are not used.
type ScenarioEngine struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewScenarioEngine creates an engine.
func NewScenarioEngine(s store.Store) *ScenarioEngine {
	return &ScenarioEngine{
		store:  s,
		logger: slog.Default().With("component", "monitoring.scenario"),
		now:    time.Now,
	}
}

// Evaluate groups transactions by customer and runs each enabled rule over
// the customer's batch. Windowed rules (HIGH_FREQUENCY, VELOCITY,
// STRUCTURING) slide their window across the batch; the others see every
// transaction. Flagged duplicates never count toward a rule.
func (e *ScenarioEngine) Evaluate(ctx context.Context, tenant string, txns []Transaction, cfg ScenarioConfig) (*ScenarioResult, error) {
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = DefaultScenarioWindowMinutes
	}
	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	res := &ScenarioResult{Hits: []RuleHit{}, Metrics: map[string]AggregatedMetrics{}}
	byCustomer := groupByCustomer(txns)
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	now := e.now()

	for _, customer := range sortedCustomerIDs(byCustomer) {
		list := chronological(byCustomer[customer])
		res.Metrics[customer] = ComputeMetrics(customer, list, window)

		var hits []RuleHit
		for i := range rules {
			rule := withRuleDefaults(rules[i], cfg.WindowMinutes)
			if !rule.IsEnabled() {
				continue
			}
			if hit, ok := evaluateRule(&rule, customer, list, now); ok {
				hits = append(hits, hit)
			}
		}

		if len(hits) < cfg.MinimumTriggers {
			res.Suppressed += len(hits)
			continue
		}

		for _, hit := range hits {
			if cfg.CooldownMinutes > 0 && e.store != nil {
				key := cooldownKeyPrefix + tenant + ":" + customer + ":" + hit.RuleID
				ttl := time.Duration(cfg.CooldownMinutes) * time.Minute
				_, inserted, err := e.store.CheckAndInsert(ctx, key, []byte(hit.RuleID), ttl)
				if err != nil {
					return nil, fmt.Errorf("cooldown check: %w", err)
				}
				if !inserted {
					e.logger.Debug("rule hit suppressed by cooldown", "customer_id", customer, "rule_id", hit.RuleID)
					res.Suppressed++
					continue
				}
			}
			res.Hits = append(res.Hits, hit)
		}
	}
	return res, nil
}

// ComputeMetrics aggregates a customer's transactions over the window ending
// at their latest transaction. Flagged duplicates are excluded.
func ComputeMetrics(customer string, txns []Transaction, window time.Duration) AggregatedMetrics {
	m := AggregatedMetrics{CustomerID: customer}
	in := inWindow(txns, window)
	if len(in) == 0 {
		return m
	}
	m.WindowStart = in[len(in)-1].Timestamp.Add(-window)
	m.WindowEnd = in[len(in)-1].Timestamp

	counterparties := map[string]struct{}{}
	var sum float64
	for _, t := range in {
		amt := t.BaseAmount()
		sum += amt
		if amt > m.MaxAmount {
			m.MaxAmount = amt
		}
		switch t.Direction {
		case DirectionIn:
			m.SumIn += amt
			m.CountIn++
		case DirectionOut:
			m.SumOut += amt
			m.CountOut++
		}
		if t.CounterpartyID != "" {
			counterparties[t.CounterpartyID] = struct{}{}
		}
	}
	m.Count = len(in)
	m.Velocity = sum
	m.AvgAmount = sum / float64(len(in))
	m.UniqueCounterparties = len(counterparties)
	return m
}

func withRuleDefaults(r ScenarioRule, windowMinutes int) ScenarioRule {
	if r.WindowMinutes <= 0 {
		r.WindowMinutes = windowMinutes
	}
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
	if r.Name == "" {
		r.Name = string(r.Type)
	}
	if r.ID == "" {
		r.ID = strings.ToLower(string(r.Type))
	}
	switch r.Type {
	case ScenarioHighValue:
		if r.AmountThreshold <= 0 {
			r.AmountThreshold = DefaultHighValueThreshold
		}
	case ScenarioHighFrequency:
		if r.CountThreshold <= 0 {
			r.CountThreshold = DefaultFrequencyThreshold
		}
	case ScenarioVelocity:
		if r.VelocityThreshold <= 0 {
			r.VelocityThreshold = DefaultVelocityThreshold
		}
	case ScenarioStructuring:
		if r.AmountThreshold <= 0 {
			r.AmountThreshold = DefaultHighValueThreshold
		}
		if r.StructuringBand <= 0 {
			r.StructuringBand = DefaultStructuringBand
		}
		if r.CountThreshold < MinStructuringCount {
			r.CountThreshold = MinStructuringCount
		}
	case ScenarioHighRiskCorridor:
		if len(r.RiskCountries) == 0 && len(r.RiskMerchantCategories) == 0 {
			r.RiskCountries = DefaultRiskCountries
		}
	}
	return r
}

func evaluateRule(r *ScenarioRule, customer string, sorted []Transaction, now time.Time) (RuleHit, bool) {
	if len(sorted) == 0 {
		return RuleHit{}, false
	}
	window := time.Duration(r.WindowMinutes) * time.Minute

	hit := RuleHit{
		RuleID:     r.ID,
		RuleName:   r.Name,
		RuleType:   r.Type,
		Severity:   r.Severity,
		CustomerID: customer,
		Timestamp:  now,
	}

	var matched []Transaction
	switch r.Type {
	case ScenarioHighValue:
		var maxAmt float64
		for _, t := range sorted {
			if t.BaseAmount() >= r.AmountThreshold {
				matched = append(matched, t)
				maxAmt = max(maxAmt, t.BaseAmount())
			}
		}
		if len(matched) == 0 {
			return RuleHit{}, false
		}
		hit.ComputedValues.Amount = maxAmt
		hit.ComputedValues.Count = len(matched)
		hit.Thresholds.Amount = r.AmountThreshold
		hit.Explanation = fmt.Sprintf("%d transaction(s) at or above %.2f; largest %.2f",
			len(matched), r.AmountThreshold, maxAmt)

	case ScenarioHighFrequency:
		in := busiestWindow(sorted, window, countOf)
		if len(in) < r.CountThreshold {
			return RuleHit{}, false
		}
		matched = in
		hit.ComputedValues.Count = len(in)
		hit.Thresholds.Count = r.CountThreshold
		hit.Explanation = fmt.Sprintf("%d transactions in %d minutes (threshold %d)",
			len(in), r.WindowMinutes, r.CountThreshold)

	case ScenarioVelocity:
		in := busiestWindow(sorted, window, sumOf)
		sum := sumOf(in)
		if sum < r.VelocityThreshold {
			return RuleHit{}, false
		}
		matched = in
		hit.ComputedValues.Velocity = sum
		hit.ComputedValues.Count = len(in)
		hit.Thresholds.Velocity = r.VelocityThreshold
		hit.Explanation = fmt.Sprintf("%.2f moved in %d minutes (threshold %.2f)",
			sum, r.WindowMinutes, r.VelocityThreshold)

	case ScenarioStructuring:
		lower := r.AmountThreshold - r.StructuringBand
		var band []Transaction
		for _, t := range sorted {
			if a := t.BaseAmount(); a >= lower && a < r.AmountThreshold {
				band = append(band, t)
			}
		}
		matched = busiestWindow(band, window, countOf)
		if len(matched) < r.CountThreshold {
			return RuleHit{}, false
		}
		hit.ComputedValues.Count = len(matched)
		hit.ComputedValues.Amount = sumOf(matched)
		hit.Thresholds.Amount = r.AmountThreshold
		hit.Thresholds.Count = r.CountThreshold
		hit.Explanation = fmt.Sprintf("%d transactions between %.2f and %.2f within %d minutes, just below the %.2f threshold",
			len(matched), lower, r.AmountThreshold, r.WindowMinutes, r.AmountThreshold)

	case ScenarioHighRiskCorridor:
		countries := map[string]bool{}
		for _, t := range sorted {
			if containsFold(r.RiskCountries, t.CounterpartyCountry) ||
				(t.MerchantCategory != "" && containsFold(r.RiskMerchantCategories, t.MerchantCategory)) {
				matched = append(matched, t)
				if t.CounterpartyCountry != "" {
					countries[strings.ToUpper(t.CounterpartyCountry)] = true
				}
			}
		}
		if len(matched) == 0 {
			return RuleHit{}, false
		}
		hit.ComputedValues.Count = len(matched)
		hit.Explanation = fmt.Sprintf("%d transaction(s) with high risk counterparties (%s)",
			len(matched), strings.Join(sortedSet(countries), ", "))

	case ScenarioUnusualPattern:
		var sum float64
		for i, t := range sorted {
			if i >= MinUnusualPatternHistory {
				avg := sum / float64(i)
				if avg > 0 && t.BaseAmount() >= UnusualPatternMultiplier*avg {
					matched = append(matched, t)
					hit.ComputedValues.Amount = max(hit.ComputedValues.Amount, t.BaseAmount())
				}
			}
			sum += t.BaseAmount()
		}
		if len(matched) == 0 {
			return RuleHit{}, false
		}
		hit.ComputedValues.Count = len(matched)
		hit.Explanation = fmt.Sprintf("%d transaction(s) at least %dx the customer's running average",
			len(matched), UnusualPatternMultiplier)

	default:
		return RuleHit{}, false
	}

	// Windowed rules report the window that triggered; the others report
	// the span of their matching transactions.
	switch r.Type {
	case ScenarioHighFrequency, ScenarioVelocity, ScenarioStructuring:
		hit.ComputedValues.WindowEnd = matched[len(matched)-1].Timestamp
		hit.ComputedValues.WindowStart = hit.ComputedValues.WindowEnd.Add(-window)
	default:
		hit.ComputedValues.WindowStart = matched[0].Timestamp
		hit.ComputedValues.WindowEnd = matched[len(matched)-1].Timestamp
	}

	ids := make([]string, len(matched))
	counterparties := map[string]bool{}
	for i, t := range matched {
		ids[i] = t.TxnID
		if t.CounterpartyID != "" {
			counterparties[t.CounterpartyID] = true
		}
	}
	hit.ContributingTransactions = ids
	hit.ComputedValues.UniqueCounterparties = len(counterparties)
	return hit, true
}

// busiestWindow anchors a window of the given width at each transaction of
// sorted and returns the one scoring highest. Ties keep the earliest window.
func busiestWindow(sorted []Transaction, width time.Duration, score func([]Transaction) float64) []Transaction {
	var best []Transaction
	bestScore := -1.0
	lo := 0
	for hi := range sorted {
		start := sorted[hi].Timestamp.Add(-width)
		for sorted[lo].Timestamp.Before(start) {
			lo++
		}
		if s := score(sorted[lo : hi+1]); s > bestScore {
			best, bestScore = sorted[lo:hi+1], s
		}
	}
	return best
}

func countOf(txns []Transaction) float64 { return float64(len(txns)) }

func sumOf(txns []Transaction) float64 {
	var sum float64
	for _, t := range txns {
		sum += t.BaseAmount()
	}
	return sum
}

// chronological returns the transactions that count toward scenario rules,
// sorted by time. Flagged duplicates are left out.
func chronological(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.IsDuplicate {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// inWindow returns the chronological transactions within window of the
// latest one.
func inWindow(txns []Transaction, window time.Duration) []Transaction {
	sorted := chronological(txns)
	if len(sorted) == 0 {
		return nil
	}
	start := sorted[len(sorted)-1].Timestamp.Add(-window)
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Timestamp.Before(start) })
	return sorted[i:]
}

func groupByCustomer(txns []Transaction) map[string][]Transaction {
	out := make(map[string][]Transaction)
	for _, t := range txns {
		out[t.CustomerID] = append(out[t.CustomerID], t)
	}
	return out
}

func sortedCustomerIDs(m map[string][]Transaction) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
