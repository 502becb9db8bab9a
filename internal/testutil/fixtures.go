// Package testutil holds workflow graphs, inputs and helpers shared by tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// Now is the reference time used by fixtures.
var Now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to Now.
func NewClock() *Clock {
	return &Clock{now: Now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func node(id string, t workflow.NodeType, cfg map[string]any) workflow.Node {
	return workflow.Node{ID: id, Type: t, Label: string(t), Config: cfg}
}

// Chain links ids with edges in order.
func Chain(ids ...string) []workflow.Edge {
	edges := make([]workflow.Edge, 0, len(ids))
	for i := 0; i+1 < len(ids); i++ {
		edges = append(edges, workflow.Edge{
			ID:     "e-" + ids[i] + "-" + ids[i+1],
			Source: ids[i],
			Target: ids[i+1],
		})
	}
	return edges
}

// KYCGraph returns the onboarding workflow: the six KYC steps, the four
// screenings, a risk calculator and a gate routing HIGH to reject, MEDIUM to
// manual review and everything else to approve.
func KYCGraph() *workflow.Graph {
	g := &workflow.Graph{Nodes: []workflow.Node{
		node("register", workflow.NodeKYCClientRegistration, nil),
		node("document", workflow.NodeKYCDocumentUpload, nil),
		node("ocr", workflow.NodeKYCOCRExtract, nil),
		node("fraud", workflow.NodeKYCDocumentFraudCheck, nil),
		node("liveness", workflow.NodeKYCBiometricLiveness, nil),
		node("face", workflow.NodeKYCFaceMatch, nil),
		node("sanctions", workflow.NodeAMLSanctionsScreen, map[string]any{"matchThreshold": 80.0}),
		node("pep", workflow.NodeAMLPEPScreen, nil),
		node("watchlist", workflow.NodeAMLWatchlistScreen, nil),
		node("media", workflow.NodeAMLAdverseMediaScreen, nil),
		node("risk", workflow.NodeRiskCalculator, nil),
		node("gate", workflow.NodeRiskGate, map[string]any{
			"routes": []any{
				map[string]any{"id": "r-high", "condition": "riskLevel == 'HIGH'", "targetNodeId": "reject"},
				map[string]any{"id": "r-medium", "condition": "riskLevel == 'MEDIUM'", "targetNodeId": "review"},
			},
			"defaultRoute": "approve",
		}),
		node("approve", workflow.NodeDecisionApprove, nil),
		node("reject", workflow.NodeDecisionReject, nil),
		node("review", workflow.NodeDecisionManualReview, nil),
	}}
	g.Edges = Chain("register", "document", "ocr", "fraud", "liveness", "face",
		"sanctions", "pep", "watchlist", "media", "risk", "gate")
	g.Edges = append(g.Edges,
		workflow.Edge{ID: "e-gate-approve", Source: "gate", Target: "approve"},
		workflow.Edge{ID: "e-gate-reject", Source: "gate", Target: "reject"},
		workflow.Edge{ID: "e-gate-review", Source: "gate", Target: "review"},
	)
	return g
}

// TMGraph returns the monitoring workflow: validate, FX, dedup, scenario
// rules and alert creation, followed by a risk calculator.
func TMGraph() *workflow.Graph {
	g := &workflow.Graph{Nodes: []workflow.Node{
		node("validate", workflow.NodeTMSchemaValidate, map[string]any{"mode": "strict"}),
		node("fx", workflow.NodeTMFXNormalize, nil),
		node("dedup", workflow.NodeTMDeduplicate, nil),
		node("scenario", workflow.NodeTMScenarioRule, nil),
		node("alert", workflow.NodeTMCreateAlert, nil),
		node("risk", workflow.NodeRiskCalculator, nil),
	}}
	g.Edges = Chain("validate", "fx", "dedup", "scenario", "alert", "risk")
	return g
}

// Transaction builds a raw transaction record at Now minus ago.
func Transaction(id, customer string, amount any, currency string, ago time.Duration) map[string]any {
	return map[string]any{
		"txn_id":          id,
		"customer_id":     customer,
		"timestamp":       Now.Add(-ago).Format(time.RFC3339),
		"amount":          amount,
		"currency":        currency,
		"direction":       "OUT",
		"channel":         "WIRE",
		"counterparty_id": "cp_" + id,
	}
}

// TMBatch is a batch with one high value EUR transfer, two small ones and a
// repeated id carrying a negative amount.
func TMBatch() []any {
	return []any{
		Transaction("txn_001", "cust_A", 15000.0, "EUR", 10*time.Minute),
		Transaction("txn_002", "cust_A", 50.0, "USD", 5*time.Minute),
		Transaction("txn_003", "cust_B", 200.0, "GBP", 3*time.Minute),
		Transaction("txn_002", "cust_A", -100.0, "USD", 2*time.Minute),
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
