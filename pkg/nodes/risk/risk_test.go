package risk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/notify"
	scoring "github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/risk"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newHandlers(poster Poster) *Handlers {
	h := New(scoring.DefaultConfig(), poster)
	h.now = func() time.Time { return fixedNow }
	return h
}

func apply(t *testing.T, fn runtime.Handler, node *workflow.CompiledNode, ec *runtime.ExecutionContext) {
	t.Helper()
	u, err := fn(context.Background(), node, ec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	runtime.MergeUpdate(ec, u)
}

func TestIndicators(t *testing.T) {
	tests := []struct {
		name  string
		data  map[string]any
		input map[string]any
		check func(scoring.Indicators) bool
	}{
		{
			name:  "sanctions from screening",
			data:  map[string]any{"aml": map[string]any{"SANCTIONS": map[string]any{"hit": true}}},
			check: func(i scoring.Indicators) bool { return i.SanctionsHit && !i.PEPHit },
		},
		{
			name:  "lowercase screening key",
			data:  map[string]any{"aml": map[string]any{"pep": map[string]any{"hit": true}}},
			check: func(i scoring.Indicators) bool { return i.PEPHit },
		},
		{
			name:  "legacy media key",
			data:  map[string]any{"aml": map[string]any{"MEDIA": map[string]any{"hit": true}}},
			check: func(i scoring.Indicators) bool { return i.AdverseMediaHit },
		},
		{
			name:  "input override",
			input: map[string]any{"watchlistHit": true, "highRiskCorridor": true},
			check: func(i scoring.Indicators) bool { return i.WatchlistHit && i.HighRiskCorridor },
		},
		{
			name: "kyc failures",
			data: map[string]any{
				"fraudCheck": map[string]any{"passed": false},
				"kyc":        map[string]any{"liveness": map[string]any{"passed": false}},
				"faceMatch":  map[string]any{"matched": false},
			},
			check: func(i scoring.Indicators) bool {
				return i.FraudCheckFailed && i.LivenessCheckFailed && i.FaceMatchFailed
			},
		},
		{
			name: "passing kyc checks",
			data: map[string]any{
				"fraudCheck": map[string]any{"passed": true},
				"liveness":   map[string]any{"passed": true},
				"faceMatch":  map[string]any{"matched": true},
			},
			check: func(i scoring.Indicators) bool {
				return !i.FraudCheckFailed && !i.LivenessCheckFailed && !i.FaceMatchFailed
			},
		},
		{
			name: "monitoring hits",
			data: map[string]any{"tm": map[string]any{
				"alertCount": 2,
				"ruleHits": []monitoring.RuleHit{
					{RuleType: monitoring.ScenarioHighRiskCorridor, Severity: monitoring.SeverityCritical},
					{RuleType: monitoring.ScenarioHighValue, Severity: monitoring.SeverityHigh},
				},
			}},
			check: func(i scoring.Indicators) bool {
				return i.TMAlertCount == 2 && i.TMRuleHitCount == 2 &&
					i.TMCriticalHits == 1 && i.TMHighHits == 1 && i.HighRiskCorridor
			},
		},
		{
			name: "decoded monitoring hits",
			data: map[string]any{"tm": map[string]any{
				"alerts":   []any{map[string]any{"alertId": "a1"}},
				"ruleHits": []any{map[string]any{"ruleType": "VELOCITY", "severity": "HIGH"}},
			}},
			check: func(i scoring.Indicators) bool {
				return i.TMAlertCount == 1 && i.TMRuleHitCount == 1 && i.TMHighHits == 1 && !i.HighRiskCorridor
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := runtime.NewExecutionContext(runtime.Meta{}, tt.input)
			if tt.data != nil {
				ec.Data = tt.data
			}
			if got := Indicators(ec); !tt.check(got) {
				t.Errorf("Unexpected indicators: %+v", got)
			}
		})
	}
}

func TestCalculate(t *testing.T) {
	allFlags := map[string]any{
		"sanctionsHit": true, "pepHit": true, "watchlistHit": true, "adverseMediaHit": true,
		"fraudCheckFailed": true, "livenessCheckFailed": true, "faceMatchFailed": true,
		"highRiskCorridor": true,
	}

	tests := []struct {
		name      string
		input     map[string]any
		config    map[string]any
		wantLevel runtime.RiskLevel
	}{
		{"clean", nil, nil, runtime.RiskLow},
		{"sanctions and fraud", map[string]any{"sanctionsHit": true, "fraudCheckFailed": true}, nil, runtime.RiskMedium},
		{"every flag", allFlags, nil, runtime.RiskHigh},
		{"multiplier", map[string]any{"sanctionsHit": true}, map[string]any{"scoreMultiplier": 4.0}, runtime.RiskHigh},
		{"floor", nil, map[string]any{"scoreFloor": 0.5}, runtime.RiskMedium},
		{
			"sanctions only weighting",
			map[string]any{"sanctionsHit": true},
			map[string]any{"weights": map[string]any{
				"pep": 0.0, "watchlist": 0.0, "adverseMedia": 0.0, "fraudCheck": 0.0,
				"livenessCheck": 0.0, "faceMatch": 0.0, "tmAlerts": 0.0, "tmRuleHits": 0.0,
				"highRiskCorridor": 0.0,
			}},
			runtime.RiskHigh,
		},
		{
			"custom thresholds",
			map[string]any{"pepHit": true},
			map[string]any{"thresholds": map[string]any{"medium": 0.05, "high": 0.1}},
			runtime.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(nil)
			ec := runtime.NewExecutionContext(runtime.Meta{}, tt.input)
			apply(t, h.Calculate, &workflow.CompiledNode{ID: "risk", Config: tt.config}, ec)

			if ec.RiskLevel != tt.wantLevel {
				t.Errorf("Expected level %s, got %s (score %.3f)", tt.wantLevel, ec.RiskLevel, ec.RiskScore)
			}
			r := ec.Namespace("risk")
			if r["score"] != ec.RiskScore {
				t.Errorf("Expected risk.score %v to equal riskScore %v", r["score"], ec.RiskScore)
			}
			if r["level"] != string(ec.RiskLevel) {
				t.Errorf("Expected risk.level %v, got %v", ec.RiskLevel, r["level"])
			}
			breakdown, _ := r["breakdown"].(map[string]any)
			if breakdown["timestamp"] != "2024-06-01T12:00:00Z" {
				t.Errorf("Expected breakdown timestamp, got %v", breakdown["timestamp"])
			}
		})
	}
}

func TestCalculate_InvalidConfig(t *testing.T) {
	h := newHandlers(nil)
	ec := runtime.NewExecutionContext(runtime.Meta{}, nil)
	node := &workflow.CompiledNode{ID: "risk", Config: map[string]any{
		"thresholds": map[string]any{"medium": 0.9, "high": 0.2},
	}}

	if _, err := h.Calculate(context.Background(), node, ec); err == nil {
		t.Error("Expected error for inverted thresholds")
	}
}

func gateNode(withDefault bool) *workflow.CompiledNode {
	cfg := map[string]any{"routes": []any{
		map[string]any{"id": "r-high", "condition": "riskLevel == 'HIGH'", "targetNodeId": "reject"},
		map[string]any{"condition": "riskScore > 0.3", "targetNodeId": "review"},
	}}
	routes := []workflow.Route{
		{Condition: "riskLevel == 'HIGH'", TargetID: "reject"},
		{Condition: "riskScore > 0.3", TargetID: "review"},
	}
	if withDefault {
		cfg["defaultRoute"] = "approve"
		routes = append(routes, workflow.Route{Condition: "true", TargetID: "approve"})
	}
	return &workflow.CompiledNode{ID: "gate", Type: workflow.NodeRiskGate, Config: cfg, Routes: routes}
}

func TestGate(t *testing.T) {
	tests := []struct {
		name        string
		level       runtime.RiskLevel
		score       float64
		withDefault bool
		wantID      string
		wantTarget  string
		wantAction  string
	}{
		{"high", runtime.RiskHigh, 0.8, true, "r-high", "reject", DecisionReject},
		{"score route without id", runtime.RiskMedium, 0.4, true, "2", "review", DecisionManualReview},
		{"default", runtime.RiskLow, 0.1, true, DefaultRouteID, "approve", DecisionApprove},
		{"no match", runtime.RiskLow, 0.1, false, "", "", DecisionApprove},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(nil)
			ec := runtime.NewExecutionContext(runtime.Meta{}, nil)
			ec.RiskLevel = tt.level
			ec.RiskScore = tt.score

			apply(t, h.Gate, gateNode(tt.withDefault), ec)

			gate := ec.Namespace("riskGate")
			if gate["evaluated"] != true {
				t.Error("Expected evaluated true")
			}
			if gate["recommendedAction"] != tt.wantAction {
				t.Errorf("Expected action %s, got %v", tt.wantAction, gate["recommendedAction"])
			}
			if gate["configuredRoutes"] != 2 {
				t.Errorf("Expected 2 configured routes, got %v", gate["configuredRoutes"])
			}

			matched, _ := gate["matchedRoute"].(map[string]any)
			if tt.wantID == "" {
				if matched != nil {
					t.Errorf("Expected no matched route, got %v", matched)
				}
				if gate["routeReason"] != "No route matched" {
					t.Errorf("Unexpected reason %v", gate["routeReason"])
				}
				return
			}
			if matched["id"] != tt.wantID {
				t.Errorf("Expected route id %s, got %v", tt.wantID, matched["id"])
			}
			if matched["targetNodeId"] != tt.wantTarget {
				t.Errorf("Expected target %s, got %v", tt.wantTarget, matched["targetNodeId"])
			}
		})
	}
}

func TestGate_DoesNotChangeRouting(t *testing.T) {
	h := newHandlers(nil)
	ec := runtime.NewExecutionContext(runtime.Meta{}, nil)

	u, err := h.Gate(context.Background(), gateNode(true), ec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u.RiskLevel != nil || u.RiskScore != nil || u.Decision != nil {
		t.Error("Expected gate to leave scalar fields untouched")
	}
}

func TestDecide(t *testing.T) {
	for _, decision := range []string{DecisionApprove, DecisionReject, DecisionManualReview} {
		t.Run(decision, func(t *testing.T) {
			h := newHandlers(nil)
			ec := runtime.NewExecutionContext(runtime.Meta{}, nil)
			apply(t, h.Decide(decision), &workflow.CompiledNode{ID: "d"}, ec)

			if ec.Decision == nil || *ec.Decision != decision {
				t.Fatalf("Expected decision %s, got %v", decision, ec.Decision)
			}
			final := ec.Namespace("finalDecision")
			if final["status"] != decision {
				t.Errorf("Expected finalDecision.status %s, got %v", decision, final["status"])
			}
		})
	}
}

func TestCallback(t *testing.T) {
	var received CallbackPayload
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer failing.Close()

	poster := notify.New(&notify.Config{Timeout: time.Second})

	tests := []struct {
		name     string
		poster   Poster
		url      string
		wantSent bool
	}{
		{"delivered", poster, ok.URL, true},
		{"rejected", poster, failing.URL, false},
		{"no url", poster, "", false},
		{"no notifier", nil, ok.URL, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(tt.poster)
			ec := runtime.NewExecutionContext(runtime.Meta{ExecutionID: "exec-1", TenantID: "t1"}, nil)
			ec.RiskLevel = runtime.RiskMedium

			apply(t, h.Callback, &workflow.CompiledNode{ID: "cb", Config: map[string]any{"url": tt.url}}, ec)

			cb := ec.Namespace("callback")
			if cb["sent"] != tt.wantSent {
				t.Errorf("Expected sent %v, got %v (%v)", tt.wantSent, cb["sent"], cb["error"])
			}
			if !tt.wantSent && cb["error"] == nil {
				t.Error("Expected error recorded")
			}
		})
	}

	if received.ExecutionID != "exec-1" || received.RiskLevel != "MEDIUM" {
		t.Errorf("Unexpected payload: %+v", received)
	}
}

func TestAuditLog(t *testing.T) {
	h := newHandlers(nil)
	ec := runtime.NewExecutionContext(runtime.Meta{}, nil)
	ec.Data["aml"] = map[string]any{"x": 1}

	apply(t, h.AuditLog, &workflow.CompiledNode{ID: "a"}, ec)

	if len(ec.Data) != 1 {
		t.Errorf("Expected data unchanged, got %v", ec.Data)
	}
}

func TestRegister(t *testing.T) {
	reg := runtime.NewRegistry()
	if err := New(scoring.Config{}, nil).Register(reg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := len(reg.Types()); got != 7 {
		t.Errorf("Expected 7 node types, got %d", got)
	}
}
