package tm

import (
	"context"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/testutil"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

func newHandlers(clock *testutil.Clock) *Handlers {
	p := monitoring.NewPipeline(store.NewMemoryStore(clock.Now), nil)
	p.SetClock(clock.Now)
	return New(p)
}

func apply(t *testing.T, fn runtime.Handler, cfg map[string]any, ec *runtime.ExecutionContext) {
	t.Helper()
	u, err := fn(context.Background(), &workflow.CompiledNode{ID: "n", Config: cfg}, ec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	runtime.MergeUpdate(ec, u)
}

func newContext(txns []any) *runtime.ExecutionContext {
	return runtime.NewExecutionContext(
		runtime.Meta{ExecutionID: "e1", TenantID: "tenant-a"},
		map[string]any{"transactions": txns},
	)
}

func current(t *testing.T, ec *runtime.ExecutionContext) []monitoring.Transaction {
	t.Helper()
	txns, skipped := monitoring.DecodeTransactions(ec.Namespace(Namespace)[CurrentKey])
	if skipped > 0 {
		t.Fatalf("Expected decodable transactions, %d skipped", skipped)
	}
	return txns
}

func TestStages_EndToEnd(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext(testutil.TMBatch())

	apply(t, h.SchemaValidate, nil, ec)
	ns := ec.Namespace(Namespace)
	if ns["validCount"] != 3 || ns["invalidCount"] != 1 {
		t.Fatalf("Expected 3 valid + 1 invalid, got %v + %v", ns["validCount"], ns["invalidCount"])
	}

	apply(t, h.FXNormalize, nil, ec)
	for _, txn := range current(t, ec) {
		if txn.AmountBase == nil {
			t.Errorf("Expected base amount on %s", txn.TxnID)
		}
	}

	apply(t, h.Deduplicate, nil, ec)
	ns = ec.Namespace(Namespace)
	if got := len(current(t, ec)); got != 3 {
		t.Errorf("Expected 3 unique transactions, got %d", got)
	}
	if ns["duplicateCount"] != 0 {
		t.Errorf("Expected no duplicates, got %v", ns["duplicateCount"])
	}

	apply(t, h.ScenarioRule, nil, ec)
	hits, _ := ec.Namespace(Namespace)["ruleHits"].([]monitoring.RuleHit)
	if len(hits) != 1 || hits[0].RuleType != monitoring.ScenarioHighValue || hits[0].CustomerID != "cust_A" {
		t.Fatalf("Expected one HIGH_VALUE hit for cust_A, got %+v", hits)
	}

	apply(t, h.CreateAlert, nil, ec)
	ns = ec.Namespace(Namespace)
	if ns["alertCount"] != 1 || ns["alertsCreated"] != 1 {
		t.Fatalf("Expected 1 created alert, got count=%v created=%v", ns["alertCount"], ns["alertsCreated"])
	}
	alerts, _ := ns["alerts"].([]monitoring.Alert)
	if alerts[0].Severity != monitoring.SeverityHigh || alerts[0].Priority != 2 {
		t.Errorf("Expected HIGH/P2 alert, got %s/P%d", alerts[0].Severity, alerts[0].Priority)
	}

	for _, key := range []string{"validTransactions", "normalizedTransactions", "uniqueTransactions", "metrics"} {
		if _, ok := ns[key]; !ok {
			t.Errorf("Expected tm.%s to survive later stages", key)
		}
	}
}

func TestDeduplicate_ReadsInputWhenFirst(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext([]any{
		testutil.Transaction("t1", "c1", 10.0, "USD", time.Minute),
		testutil.Transaction("t1", "c1", 10.0, "USD", time.Minute),
		testutil.Transaction("t2", "c1", 20.0, "USD", time.Minute),
	})

	apply(t, h.Deduplicate, map[string]any{"duplicateBehavior": "flag"}, ec)

	ns := ec.Namespace(Namespace)
	if ns["duplicateCount"] != 1 {
		t.Errorf("Expected 1 duplicate, got %v", ns["duplicateCount"])
	}
	txns := current(t, ec)
	if len(txns) != 3 {
		t.Fatalf("Expected flagged duplicate retained, got %d transactions", len(txns))
	}
	flagged := 0
	for _, txn := range txns {
		if txn.IsDuplicate {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("Expected 1 flagged transaction, got %d", flagged)
	}
}

func TestDeduplicate_AcrossRuns(t *testing.T) {
	clock := testutil.NewClock()
	h := newHandlers(clock)
	batch := []any{testutil.Transaction("t1", "c1", 10.0, "USD", time.Minute)}

	first := newContext(batch)
	apply(t, h.Deduplicate, nil, first)

	second := newContext(batch)
	apply(t, h.Deduplicate, nil, second)
	if got := second.Namespace(Namespace)["duplicateCount"]; got != 1 {
		t.Errorf("Expected replay to be a duplicate, got %v", got)
	}

	clock.Advance(31 * 24 * time.Hour)
	third := newContext(batch)
	apply(t, h.Deduplicate, nil, third)
	if got := third.Namespace(Namespace)["duplicateCount"]; got != 0 {
		t.Errorf("Expected entry expired after TTL, got %v duplicates", got)
	}
}

func TestScenarioRule_NodeConfig(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext([]any{
		testutil.Transaction("s1", "c1", 9500.0, "USD", 30*time.Minute),
		testutil.Transaction("s2", "c1", 9600.0, "USD", 20*time.Minute),
		testutil.Transaction("s3", "c1", 9700.0, "USD", 10*time.Minute),
	})

	apply(t, h.SchemaValidate, nil, ec)
	apply(t, h.ScenarioRule, map[string]any{
		"rules": []any{map[string]any{
			"id":              "structuring",
			"name":            "Structuring",
			"type":            "STRUCTURING",
			"amountThreshold": 10000,
			"structuringBand": 1000,
			"windowMinutes":   60,
			"severity":        "HIGH",
		}},
	}, ec)

	ns := ec.Namespace(Namespace)
	if ns["ruleHitCount"] != 1 {
		t.Fatalf("Expected 1 structuring hit, got %v", ns["ruleHitCount"])
	}
	hits, _ := ns["ruleHits"].([]monitoring.RuleHit)
	if hits[0].RuleID != "structuring" || len(hits[0].ContributingTransactions) != 3 {
		t.Errorf("Unexpected hit: %+v", hits[0])
	}
}

func TestCreateAlert_EscalatesHighRiskCustomer(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext([]any{testutil.Transaction("h1", "c9", 20000.0, "USD", time.Minute)})
	ec.Input["customers"] = map[string]any{"c9": map[string]any{"risk_rating": "HIGH"}}

	apply(t, h.SchemaValidate, nil, ec)
	apply(t, h.ScenarioRule, nil, ec)
	apply(t, h.CreateAlert, nil, ec)

	alerts, _ := ec.Namespace(Namespace)["alerts"].([]monitoring.Alert)
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Priority != 1 {
		t.Errorf("Expected high-risk customer escalated to P1, got P%d", alerts[0].Priority)
	}
}

func TestCreateAlert_NoHits(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext(nil)

	apply(t, h.CreateAlert, nil, ec)

	if got := ec.Namespace(Namespace)["alertCount"]; got != 0 {
		t.Errorf("Expected 0 alerts, got %v", got)
	}
}

func TestCustomers(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  map[string]string
	}{
		{"map keyed by id", map[string]any{"customers": map[string]any{
			"c1": map[string]any{"risk_rating": "HIGH"},
		}}, map[string]string{"c1": "HIGH"}},
		{"list", map[string]any{"customers": []any{
			map[string]any{"customer_id": "c2", "risk_rating": "LOW"},
			map[string]any{"risk_rating": "HIGH"},
		}}, map[string]string{"c2": "LOW"}},
		{"single customer", map[string]any{"customer": map[string]any{"customer_id": "c3", "risk_rating": "MEDIUM"}},
			map[string]string{"c3": "MEDIUM"}},
		{"none", map[string]any{}, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Customers(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d customers, got %d", len(tt.want), len(got))
			}
			for id, rating := range tt.want {
				if got[id].RiskRating != rating {
					t.Errorf("Expected %s rated %s, got %q", id, rating, got[id].RiskRating)
				}
			}
		})
	}
}

func TestInvalidConfigFails(t *testing.T) {
	h := newHandlers(testutil.NewClock())
	ec := newContext(nil)

	_, err := h.SchemaValidate(context.Background(), &workflow.CompiledNode{ID: "n", Config: map[string]any{"mode": 42}}, ec)
	if err == nil {
		t.Error("Expected decode error for non-string mode")
	}
}

func TestRegister(t *testing.T) {
	reg := runtime.NewRegistry()
	if err := New(nil).Register(reg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := len(reg.Types()); got != 5 {
		t.Errorf("Expected 5 node types, got %d", got)
	}
}
