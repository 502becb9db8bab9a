package monitoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/notify"
)

type fakePoster struct {
	calls int
	err   error
}

func (f *fakePoster) Post(ctx context.Context, url string, payload any) (*notify.Delivery, error) {
	f.calls++
	if f.err != nil {
		return &notify.Delivery{URL: url, Attempts: 3}, f.err
	}
	return &notify.Delivery{URL: url, StatusCode: 200, Attempts: 1}, nil
}

func newTestAlerter(poster Poster) (*Alerter, *testClock) {
	clock := newTestClock()
	a := NewAlerter(store.NewMemoryStore(clock.Now), poster)
	a.now = clock.Now
	n := 0
	a.newID = func() string {
		n++
		return fmt.Sprintf("alert_%d", n)
	}
	return a, clock
}

func hit(customer, ruleID string, typ ScenarioType, sev Severity, txns ...string) RuleHit {
	return RuleHit{
		RuleID:                   ruleID,
		RuleName:                 ruleID,
		RuleType:                 typ,
		Severity:                 sev,
		CustomerID:               customer,
		ContributingTransactions: txns,
		ComputedValues:           ComputedValues{WindowStart: testNow.Add(-time.Hour), WindowEnd: testNow},
		Timestamp:                testNow,
	}
}

func TestAlerter_CreatesOneAlertPerGroup(t *testing.T) {
	a, _ := newTestAlerter(nil)
	hits := []RuleHit{
		hit("cust_A", "hv", ScenarioHighValue, SeverityHigh, "t1"),
		hit("cust_A", "hv_2", ScenarioHighValue, SeverityMedium, "t2"),
		hit("cust_A", "vel", ScenarioVelocity, SeverityMedium, "t1", "t2"),
		hit("cust_B", "hv", ScenarioHighValue, SeverityCritical, "t3"),
	}

	res, err := a.Create(context.Background(), "t1", hits, nil, DefaultAlertConfig())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(res.Created) != 3 {
		t.Fatalf("Expected 3 alerts, got %d", len(res.Created))
	}

	first := res.Created[0]
	if first.Severity != SeverityHigh || first.Priority != 2 {
		t.Errorf("Expected HIGH/P2, got %s/P%d", first.Severity, first.Priority)
	}
	if first.HitCount != 2 || len(first.TriggeredRules) != 2 {
		t.Errorf("Expected 2 hits from 2 rules, got %d from %v", first.HitCount, first.TriggeredRules)
	}
	if first.Status != AlertOpen {
		t.Errorf("Expected OPEN, got %s", first.Status)
	}
	if !first.SLADue.Equal(testNow.Add(240 * time.Minute)) {
		t.Errorf("Expected SLA due in 4h, got %s", first.SLADue)
	}
	if first.Queue != DefaultQueue {
		t.Errorf("Expected default queue, got %s", first.Queue)
	}
	if len(first.AuditLog) != 1 || first.AuditLog[0].Action != "CREATED" {
		t.Errorf("Expected CREATED audit entry, got %v", first.AuditLog)
	}
	if res.Created[2].Priority != 1 {
		t.Errorf("Expected CRITICAL to map to P1, got P%d", res.Created[2].Priority)
	}
}

func TestAlerter_GroupAbsorbsWithinWindow(t *testing.T) {
	a, clock := newTestAlerter(nil)
	ctx := context.Background()
	cfg := DefaultAlertConfig()

	first, err := a.Create(ctx, "t1", []RuleHit{hit("cust_A", "hv", ScenarioHighValue, SeverityMedium, "t1")}, nil, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	clock.Advance(10 * time.Minute)
	second, err := a.Create(ctx, "t1", []RuleHit{hit("cust_A", "hv", ScenarioHighValue, SeverityCritical, "t2")}, nil, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(second.Created) != 0 || len(second.Updated) != 1 {
		t.Fatalf("Expected the open group to absorb the hit, got %d created / %d updated", len(second.Created), len(second.Updated))
	}
	upd := second.Updated[0]
	if upd.AlertID != first.Created[0].AlertID {
		t.Errorf("Expected same alert id, got %s vs %s", upd.AlertID, first.Created[0].AlertID)
	}
	if upd.HitCount != 2 || len(upd.ContributingTransactions) != 2 {
		t.Errorf("Expected 2 hits over 2 transactions, got %d / %v", upd.HitCount, upd.ContributingTransactions)
	}
	if upd.Severity != SeverityCritical || upd.Priority != 1 {
		t.Errorf("Expected escalation to CRITICAL/P1, got %s/P%d", upd.Severity, upd.Priority)
	}
	if len(upd.AuditLog) != 2 {
		t.Errorf("Expected 2 audit entries, got %d", len(upd.AuditLog))
	}

	clock.Advance(30 * time.Minute)
	third, err := a.Create(ctx, "t1", []RuleHit{hit("cust_A", "hv", ScenarioHighValue, SeverityMedium, "t3")}, nil, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(third.Created) != 1 {
		t.Errorf("Expected a new alert after the grouping window, got %d", len(third.Created))
	}
}

func TestAlerter_HighRiskCustomerEscalation(t *testing.T) {
	a, _ := newTestAlerter(nil)
	customers := map[string]CustomerContext{"cust_A": {RiskRating: "high", Segment: "retail"}}

	res, err := a.Create(context.Background(), "t1",
		[]RuleHit{hit("cust_A", "hv", ScenarioHighValue, SeverityMedium, "t1")}, customers, DefaultAlertConfig())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got := res.Created[0]
	if got.Priority != 2 {
		t.Errorf("Expected P3 escalated to P2, got P%d", got.Priority)
	}
	if got.CustomerContext == nil || got.CustomerContext.CustomerID != "cust_A" {
		t.Errorf("Expected customer context to be attached, got %+v", got.CustomerContext)
	}
}

func TestAlerter_PriorityNeverBelowOne(t *testing.T) {
	a, _ := newTestAlerter(nil)
	customers := map[string]CustomerContext{"cust_A": {RiskRating: "HIGH"}}

	res, _ := a.Create(context.Background(), "t1",
		[]RuleHit{hit("cust_A", "corr", ScenarioHighRiskCorridor, SeverityCritical, "t1")}, customers, DefaultAlertConfig())
	if res.Created[0].Priority != 1 {
		t.Errorf("Expected P1, got P%d", res.Created[0].Priority)
	}
}

func TestAlerter_Routing(t *testing.T) {
	a, _ := newTestAlerter(nil)
	cfg := DefaultAlertConfig()
	cfg.RoutingRules = []RoutingRule{
		{Condition: "this is not a condition", Queue: "never"},
		{Condition: "priority < 2", Queue: "urgent"},
		{Condition: "ruleType == 'STRUCTURING'", Queue: "structuring"},
	}

	res, err := a.Create(context.Background(), "t1", []RuleHit{
		hit("cust_A", "corr", ScenarioHighRiskCorridor, SeverityCritical, "t1"),
		hit("cust_B", "struct", ScenarioStructuring, SeverityHigh, "t2"),
		hit("cust_C", "hv", ScenarioHighValue, SeverityLow, "t3"),
	}, nil, cfg)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := []string{"urgent", "structuring", DefaultQueue}
	for i, alert := range res.Created {
		if alert.Queue != want[i] {
			t.Errorf("Alert %d: expected queue %s, got %s", i, want[i], alert.Queue)
		}
	}
}

func TestAlerter_Webhook(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantDelivered bool
	}{
		{"delivered", nil, true},
		{"failure does not fail the stage", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{err: tt.err}
			a, _ := newTestAlerter(poster)
			cfg := DefaultAlertConfig()
			cfg.WebhookURL = "http://example.invalid/hook"

			res, err := a.Create(context.Background(), "t1",
				[]RuleHit{hit("cust_A", "hv", ScenarioHighValue, SeverityHigh, "t1")}, nil, cfg)
			if err != nil {
				t.Fatalf("Expected webhook outcome not to fail Create, got %v", err)
			}
			if poster.calls != 1 || len(res.Notifications) != 1 {
				t.Fatalf("Expected one notification, got %d calls and %v", poster.calls, res.Notifications)
			}
			if res.Notifications[0].Delivered != tt.wantDelivered {
				t.Errorf("Expected delivered=%v, got %+v", tt.wantDelivered, res.Notifications[0])
			}
		})
	}
}

func TestAlerter_Empty(t *testing.T) {
	a, _ := newTestAlerter(nil)
	res, err := a.Create(context.Background(), "t1", nil, nil, AlertConfig{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(res.Alerts()) != 0 {
		t.Errorf("Expected no alerts, got %d", len(res.Alerts()))
	}
}

func TestPriorityAndSLAFallbacks(t *testing.T) {
	if p := PriorityFor("UNKNOWN", DefaultAlertConfig().SeverityPriorityMap); p != 4 {
		t.Errorf("Expected P4 for unknown severity, got %d", p)
	}
	if d := SLAFor(9, DefaultAlertConfig().SLAMinutesByPriority); d != 24*time.Hour {
		t.Errorf("Expected 24h SLA for unmapped priority, got %s", d)
	}
}
