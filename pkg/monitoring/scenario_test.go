package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
)

func newTestScenarioEngine() (*ScenarioEngine, *testClock) {
	clock := newTestClock()
	e := NewScenarioEngine(store.NewMemoryStore(clock.Now))
	e.now = clock.Now
	return e, clock
}

func evaluate(t *testing.T, txns []Transaction, rules ...ScenarioRule) *ScenarioResult {
	t.Helper()
	e, _ := newTestScenarioEngine()
	cfg := DefaultScenarioConfig()
	cfg.Rules = rules
	res, err := e.Evaluate(context.Background(), "t1", txns, cfg)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return res
}

func TestScenario_HighValue(t *testing.T) {
	res := evaluate(t,
		[]Transaction{txn("t1", "cust_A", 16500, 0), txn("t2", "cust_A", 50, 0)},
		ScenarioRule{ID: "rule_1", Type: ScenarioHighValue, AmountThreshold: 10000, Severity: SeverityHigh},
	)

	if len(res.Hits) != 1 {
		t.Fatalf("Expected 1 hit, got %d", len(res.Hits))
	}
	hit := res.Hits[0]
	if hit.RuleType != ScenarioHighValue || hit.Severity != SeverityHigh {
		t.Errorf("Expected HIGH_VALUE/HIGH, got %s/%s", hit.RuleType, hit.Severity)
	}
	if len(hit.ContributingTransactions) != 1 || hit.ContributingTransactions[0] != "t1" {
		t.Errorf("Expected contributing [t1], got %v", hit.ContributingTransactions)
	}
	if hit.ComputedValues.Amount != 16500 || hit.Thresholds.Amount != 10000 {
		t.Errorf("Expected amount 16500 vs 10000, got %+v / %+v", hit.ComputedValues, hit.Thresholds)
	}
	if hit.Explanation == "" {
		t.Error("Expected an explanation")
	}
}

func TestScenario_Structuring(t *testing.T) {
	rule := ScenarioRule{ID: "struct", Type: ScenarioStructuring, AmountThreshold: 10000, StructuringBand: 1000, Severity: SeverityHigh}

	two := []Transaction{
		txn("s1", "cust_A", 9500, 30*time.Minute),
		txn("s2", "cust_A", 9800, 20*time.Minute),
		txn("s3", "cust_A", 10000, 10*time.Minute),
		txn("s4", "cust_A", 8000, 5*time.Minute),
	}
	if res := evaluate(t, two, rule); len(res.Hits) != 0 {
		t.Errorf("Expected 2 transactions in band not to trigger, got %v", res.Hits)
	}

	three := append(two, txn("s5", "cust_A", 9999.99, time.Minute))
	res := evaluate(t, three, rule)
	if len(res.Hits) != 1 {
		t.Fatalf("Expected 3 transactions in band to trigger, got %d", len(res.Hits))
	}
	if res.Hits[0].ComputedValues.Count != 3 {
		t.Errorf("Expected count 3, got %d", res.Hits[0].ComputedValues.Count)
	}
}

func TestScenario_FrequencyAndVelocity(t *testing.T) {
	var txns []Transaction
	for i := 0; i < 5; i++ {
		txns = append(txns, txn(string(rune('a'+i)), "cust_A", 3000, time.Duration(i)*time.Minute))
	}

	res := evaluate(t, txns,
		ScenarioRule{ID: "freq", Type: ScenarioHighFrequency, CountThreshold: 5},
		ScenarioRule{ID: "vel", Type: ScenarioVelocity, VelocityThreshold: 15000},
		ScenarioRule{ID: "vel_high", Type: ScenarioVelocity, VelocityThreshold: 15001},
	)

	got := map[string]bool{}
	for _, h := range res.Hits {
		got[h.RuleID] = true
	}
	if !got["freq"] || !got["vel"] || got["vel_high"] {
		t.Errorf("Expected freq and vel hits only, got %v", got)
	}
}

func TestScenario_WindowExcludesOldTransactions(t *testing.T) {
	txns := []Transaction{
		txn("old1", "cust_A", 6000, 4*time.Hour),
		txn("old2", "cust_A", 6000, 2*time.Hour),
		txn("new", "cust_A", 6000, 0),
	}
	res := evaluate(t, txns, ScenarioRule{ID: "vel", Type: ScenarioVelocity, VelocityThreshold: 10000, WindowMinutes: 60})
	if len(res.Hits) != 0 {
		t.Errorf("Expected transactions outside the window to be ignored, got %v", res.Hits)
	}
	if m := res.Metrics["cust_A"]; m.Count != 1 || m.SumOut != 6000 {
		t.Errorf("Expected metrics over 1 transaction, got %+v", m)
	}
}

func TestScenario_HighValueAnywhereInBatch(t *testing.T) {
	res := evaluate(t,
		[]Transaction{txn("big", "cust_A", 25000, 3*time.Hour), txn("small", "cust_A", 20, 0)},
		ScenarioRule{ID: "hv", Type: ScenarioHighValue, AmountThreshold: 10000},
	)
	if len(res.Hits) != 1 || res.Hits[0].ContributingTransactions[0] != "big" {
		t.Fatalf("Expected the earlier large transaction to hit, got %v", res.Hits)
	}
	if !res.Hits[0].ComputedValues.WindowEnd.Equal(testNow.Add(-3 * time.Hour)) {
		t.Errorf("Expected the hit to report the large transaction's time, got %v", res.Hits[0].ComputedValues.WindowEnd)
	}
}

func TestScenario_SlidingWindow(t *testing.T) {
	burst := func(later Transaction) []Transaction {
		return []Transaction{
			txn("b1", "cust_A", 9500, 3*time.Hour+20*time.Minute),
			txn("b2", "cust_A", 9600, 3*time.Hour+10*time.Minute),
			txn("b3", "cust_A", 9700, 3*time.Hour),
			later,
		}
	}
	later := txn("later", "cust_A", 20, 0)

	tests := []struct {
		name        string
		rule        ScenarioRule
		wantCount   int
		wantTxnIDs  []string
		wantVelSums float64
	}{
		{
			name:       "structuring",
			rule:       ScenarioRule{ID: "struct", Type: ScenarioStructuring, AmountThreshold: 10000, StructuringBand: 1000, WindowMinutes: 60},
			wantCount:  3,
			wantTxnIDs: []string{"b1", "b2", "b3"},
		},
		{
			name:       "frequency",
			rule:       ScenarioRule{ID: "freq", Type: ScenarioHighFrequency, CountThreshold: 3, WindowMinutes: 60},
			wantCount:  3,
			wantTxnIDs: []string{"b1", "b2", "b3"},
		},
		{
			name:        "velocity",
			rule:        ScenarioRule{ID: "vel", Type: ScenarioVelocity, VelocityThreshold: 25000, WindowMinutes: 60},
			wantCount:   3,
			wantTxnIDs:  []string{"b1", "b2", "b3"},
			wantVelSums: 28800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, burst(later), tt.rule)
			if len(res.Hits) != 1 {
				t.Fatalf("Expected the earlier burst to hit, got %v", res.Hits)
			}
			hit := res.Hits[0]
			if hit.ComputedValues.Count != tt.wantCount {
				t.Errorf("Expected count %d, got %d", tt.wantCount, hit.ComputedValues.Count)
			}
			if len(hit.ContributingTransactions) != len(tt.wantTxnIDs) {
				t.Fatalf("Expected contributing %v, got %v", tt.wantTxnIDs, hit.ContributingTransactions)
			}
			for i, id := range tt.wantTxnIDs {
				if hit.ContributingTransactions[i] != id {
					t.Errorf("Expected contributing %v, got %v", tt.wantTxnIDs, hit.ContributingTransactions)
					break
				}
			}
			if tt.wantVelSums != 0 && hit.ComputedValues.Velocity != tt.wantVelSums {
				t.Errorf("Expected velocity %.2f, got %.2f", tt.wantVelSums, hit.ComputedValues.Velocity)
			}
			wantEnd := testNow.Add(-3 * time.Hour)
			if !hit.ComputedValues.WindowEnd.Equal(wantEnd) || !hit.ComputedValues.WindowStart.Equal(wantEnd.Add(-time.Hour)) {
				t.Errorf("Expected window ending at b3, got %v..%v", hit.ComputedValues.WindowStart, hit.ComputedValues.WindowEnd)
			}
		})
	}
}

func TestScenario_FlaggedDuplicatesIgnored(t *testing.T) {
	d, _ := newTestDeduplicator()
	cfg := DefaultDedupConfig()
	cfg.DuplicateBehavior = DuplicateLog

	dedup, err := d.Run(context.Background(), "t1",
		[]Transaction{txn("a", "cust_A", 30000, time.Minute), txn("a", "cust_A", 30000, 0)}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(dedup.Output) != 2 {
		t.Fatalf("Expected the flagged duplicate to stay in output, got %d", len(dedup.Output))
	}

	res := evaluate(t, dedup.Output,
		ScenarioRule{ID: "vel", Type: ScenarioVelocity, VelocityThreshold: 50000},
		ScenarioRule{ID: "freq", Type: ScenarioHighFrequency, CountThreshold: 2},
	)
	if len(res.Hits) != 0 {
		t.Errorf("Expected a replayed transaction not to count twice, got %v", res.Hits)
	}
	if m := res.Metrics["cust_A"]; m.Count != 1 || m.Velocity != 30000 {
		t.Errorf("Expected metrics over the original only, got %+v", m)
	}
}

func TestScenario_HighRiskCorridor(t *testing.T) {
	a := txn("c1", "cust_A", 100, 0)
	a.CounterpartyCountry = "ir"
	b := txn("c2", "cust_B", 100, 0)
	b.CounterpartyCountry = "FR"
	c := txn("c3", "cust_C", 100, 0)
	c.MerchantCategory = "7995"

	res := evaluate(t, []Transaction{a, b, c},
		ScenarioRule{ID: "corr", Type: ScenarioHighRiskCorridor, RiskCountries: []string{"IR"}, RiskMerchantCategories: []string{"7995"}, Severity: SeverityCritical},
	)

	customers := map[string]bool{}
	for _, h := range res.Hits {
		customers[h.CustomerID] = true
	}
	if len(res.Hits) != 2 || !customers["cust_A"] || !customers["cust_C"] {
		t.Errorf("Expected hits for cust_A and cust_C, got %v", res.Hits)
	}
}

func TestScenario_UnusualPattern(t *testing.T) {
	txns := []Transaction{
		txn("u1", "cust_A", 100, 40*time.Minute),
		txn("u2", "cust_A", 120, 30*time.Minute),
		txn("u3", "cust_A", 80, 20*time.Minute),
		txn("u4", "cust_A", 301, 10*time.Minute),
	}
	res := evaluate(t, txns, ScenarioRule{ID: "unusual", Type: ScenarioUnusualPattern})
	if len(res.Hits) != 1 || res.Hits[0].ContributingTransactions[0] != "u4" {
		t.Errorf("Expected u4 to be flagged, got %v", res.Hits)
	}

	res = evaluate(t, txns[1:], ScenarioRule{ID: "unusual", Type: ScenarioUnusualPattern})
	if len(res.Hits) != 0 {
		t.Errorf("Expected no hit with fewer than 3 prior transactions, got %v", res.Hits)
	}
}

func TestScenario_DisabledRule(t *testing.T) {
	off := false
	res := evaluate(t, []Transaction{txn("t1", "cust_A", 50000, 0)},
		ScenarioRule{ID: "hv", Type: ScenarioHighValue, Enabled: &off},
	)
	if len(res.Hits) != 0 {
		t.Errorf("Expected disabled rule to be skipped, got %v", res.Hits)
	}
}

func TestScenario_DefaultRules(t *testing.T) {
	res := evaluate(t, []Transaction{txn("t1", "cust_A", 12000, 0)})
	if len(res.Hits) != 1 || res.Hits[0].RuleID != "default_high_value" {
		t.Errorf("Expected default high value rule to fire, got %v", res.Hits)
	}
}

func TestScenario_MinimumTriggers(t *testing.T) {
	e, _ := newTestScenarioEngine()
	cfg := DefaultScenarioConfig()
	cfg.MinimumTriggers = 2
	cfg.Rules = []ScenarioRule{
		{ID: "hv", Type: ScenarioHighValue, AmountThreshold: 10000},
		{ID: "vel", Type: ScenarioVelocity, VelocityThreshold: 20000},
	}

	res, err := e.Evaluate(context.Background(), "t1", []Transaction{
		txn("a", "cust_A", 15000, 0),
		txn("b", "cust_B", 15000, 0), txn("c", "cust_B", 15000, time.Minute),
	}, cfg)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(res.Hits) != 2 {
		t.Errorf("Expected only cust_B's 2 hits, got %v", res.Hits)
	}
	if res.Suppressed != 1 {
		t.Errorf("Expected 1 suppressed hit, got %d", res.Suppressed)
	}
}

func TestScenario_Cooldown(t *testing.T) {
	e, clock := newTestScenarioEngine()
	cfg := DefaultScenarioConfig()
	cfg.CooldownMinutes = 60
	cfg.Rules = []ScenarioRule{{ID: "hv", Type: ScenarioHighValue, AmountThreshold: 10000}}
	batch := []Transaction{txn("a", "cust_A", 15000, 0)}
	ctx := context.Background()

	first, _ := e.Evaluate(ctx, "t1", batch, cfg)
	second, _ := e.Evaluate(ctx, "t1", batch, cfg)
	clock.Advance(61 * time.Minute)
	third, _ := e.Evaluate(ctx, "t1", batch, cfg)

	if len(first.Hits) != 1 || len(second.Hits) != 0 || len(third.Hits) != 1 {
		t.Errorf("Expected hits 1/0/1 across cooldown, got %d/%d/%d", len(first.Hits), len(second.Hits), len(third.Hits))
	}
}

func TestScenario_Empty(t *testing.T) {
	res := evaluate(t, nil)
	if res.Hits == nil || len(res.Hits) != 0 {
		t.Errorf("Expected empty hits, got %v", res.Hits)
	}
}

func TestComputeMetrics(t *testing.T) {
	in := txn("i", "cust_A", 300, 0)
	in.Direction = DirectionIn
	in.CounterpartyID = "cp1"
	out := txn("o", "cust_A", 100, time.Minute)
	out.CounterpartyID = "cp2"

	m := ComputeMetrics("cust_A", []Transaction{in, out}, time.Hour)

	if m.Count != 2 || m.SumIn != 300 || m.SumOut != 100 || m.CountIn != 1 || m.CountOut != 1 {
		t.Errorf("Unexpected direction totals: %+v", m)
	}
	if m.UniqueCounterparties != 2 || m.MaxAmount != 300 || m.AvgAmount != 200 || m.Velocity != 400 {
		t.Errorf("Unexpected aggregates: %+v", m)
	}
}
