package nodes

import (
	"context"
	"testing"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/testutil"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

func compile(t *testing.T, g *workflow.Graph) *workflow.Plan {
	t.Helper()
	res, err := compiler.Compile(g)
	testutil.AssertNoError(t, err)
	return res.Plan
}

func TestRegisterAll_CoversCatalog(t *testing.T) {
	reg, err := NewRegistry(Deps{})
	testutil.AssertNoError(t, err)

	types := reg.Types()
	if len(types) != 22 {
		t.Errorf("Expected 22 registered node types, got %d", len(types))
	}
	for _, nt := range types {
		if !nt.IsKnown() {
			t.Errorf("Registered type %s is not in the catalog", nt)
		}
	}
}

func TestKYCWorkflow_Decisions(t *testing.T) {
	allFlags := map[string]any{
		"sanctionsHit": true, "pepHit": true, "watchlistHit": true, "adverseMediaHit": true,
		"fraudCheckFailed": true, "livenessCheckFailed": true, "faceMatchFailed": true,
		"highRiskCorridor": true,
	}

	tests := []struct {
		name         string
		input        map[string]any
		wantLevel    runtime.RiskLevel
		wantDecision string
	}{
		{"clean applicant", map[string]any{}, runtime.RiskLow, "APPROVE"},
		{"sanctioned and forged", map[string]any{"givenName": "Fraud", "familyName": "Osama"}, runtime.RiskMedium, "MANUAL_REVIEW"},
		{"every indicator", allFlags, runtime.RiskHigh, "REJECT"},
	}

	plan := compile(t, testutil.KYCGraph())
	reg, err := NewRegistry(Deps{})
	testutil.AssertNoError(t, err)
	interp := runtime.NewInterpreter(reg, runtime.Options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := interp.Execute(context.Background(), plan, tt.input, runtime.Meta{ExecutionID: "exec-" + tt.name})
			testutil.AssertNoError(t, err)

			if res.Status != runtime.StatusDone {
				t.Fatalf("Expected DONE, got %s (%s)", res.Status, res.RouteReason)
			}
			if res.RiskLevel != tt.wantLevel {
				t.Errorf("Expected level %s, got %s (score %.3f)", tt.wantLevel, res.RiskLevel, res.RiskScore)
			}
			if res.Decision == nil || *res.Decision != tt.wantDecision {
				t.Errorf("Expected decision %s, got %v", tt.wantDecision, res.Decision)
			}

			gate, _ := res.Output["riskGate"].(map[string]any)
			matched, _ := gate["matchedRoute"].(map[string]any)
			if matched["targetNodeId"] != res.LastNodeID {
				t.Errorf("Expected recorded route target %v to be the final node %s", matched["targetNodeId"], res.LastNodeID)
			}
			for _, ns := range []string{"client", "ocr", "fraudCheck", "liveness", "faceMatch", "aml", "risk"} {
				if _, ok := res.Output[ns]; !ok {
					t.Errorf("Expected output namespace %s", ns)
				}
			}
		})
	}
}

func TestTMWorkflow(t *testing.T) {
	clock := testutil.NewClock()
	pipeline := monitoring.NewPipeline(store.NewMemoryStore(clock.Now), nil)
	pipeline.SetClock(clock.Now)

	reg, err := NewRegistry(Deps{Monitoring: pipeline})
	testutil.AssertNoError(t, err)
	interp := runtime.NewInterpreter(reg, runtime.Options{})

	res, err := interp.Execute(context.Background(), compile(t, testutil.TMGraph()),
		map[string]any{"transactions": testutil.TMBatch()},
		runtime.Meta{ExecutionID: "tm-1", TenantID: "tenant-a"})
	testutil.AssertNoError(t, err)

	if res.Status != runtime.StatusDone || res.Steps != 6 {
		t.Fatalf("Expected DONE after 6 steps, got %s after %d", res.Status, res.Steps)
	}
	tm, _ := res.Output["tm"].(map[string]any)
	if tm["alertCount"] != 1 {
		t.Errorf("Expected 1 alert, got %v", tm["alertCount"])
	}
	if res.RiskScore <= 0 {
		t.Errorf("Expected monitoring hits to raise the risk score, got %v", res.RiskScore)
	}
}
