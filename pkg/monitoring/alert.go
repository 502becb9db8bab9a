package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/notify"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/condition"
)

const (
	alertGroupKeyPrefix = "alertgroup:"

	// DefaultQueue receives alerts no routing rule claims.
	DefaultQueue = "tm-default"

	alertActor = "system"
)

// routingParser accepts the identifiers alert routing conditions may use.
var routingParser = condition.NewParser("severity", "priority", "ruleType", "hitCount", "customerRiskRating")

// RoutingRule sends alerts matching Condition to Queue.
type RoutingRule struct {
	Condition string `json:"condition"`
	Queue     string `json:"queue"`
}

// AlertConfig configures the Alerter. JSON names follow the node config.
type AlertConfig struct {
	GroupingWindowMinutes int            `json:"groupingWindowMinutes"`
	SeverityPriorityMap   map[string]int `json:"severityPriorityMap"`
	RoutingRules          []RoutingRule  `json:"routingRules"`
	SLAMinutesByPriority  map[string]int `json:"slaMinutesByPriority"`
	WebhookURL            string         `json:"webhookUrl"`
	DefaultQueue          string         `json:"defaultQueue"`
}

// DefaultAlertConfig returns a 30 minute grouping window with the standard
// priority and SLA maps.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		GroupingWindowMinutes: 30,
		SeverityPriorityMap: map[string]int{
			string(SeverityCritical): 1,
			string(SeverityHigh):     2,
			string(SeverityMedium):   3,
			string(SeverityLow):      4,
		},
		SLAMinutesByPriority: map[string]int{
			"1": 60,
			"2": 240,
			"3": 1440,
			"4": 4320,
		},
		DefaultQueue: DefaultQueue,
	}
}

// Notification records one webhook attempt for a created alert.
type Notification struct {
	AlertID   string `json:"alertId"`
	Delivered bool   `json:"delivered"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AlertResult lists alerts opened and alerts that absorbed new hits.
type AlertResult struct {
	Created       []Alert        `json:"created"`
	Updated       []Alert        `json:"updated"`
	Notifications []Notification `json:"notifications"`
}

// Alerts returns created then updated alerts.
func (r *AlertResult) Alerts() []Alert {
	out := make([]Alert, 0, len(r.Created)+len(r.Updated))
	out = append(out, r.Created...)
	return append(out, r.Updated...)
}

// Poster delivers webhook payloads. *notify.Notifier implements it.
type Poster interface {
	Post(ctx context.Context, url string, payload any) (*notify.Delivery, error)
}

// Alerter groups rule hits into alerts, one open alert per customer, rule
// type and grouping window.
type Alerter struct {
	store  store.Store
	poster Poster
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewAlerter creates an alerter. poster may be nil.
func NewAlerter(s store.Store, poster Poster) *Alerter {
	return &Alerter{
		store:  s,
		poster: poster,
		logger: slog.Default().With("component", "monitoring.alert"),
		now:    time.Now,
		newID:  func() string { return "alert_" + uuid.NewString() },
	}
}

type hitGroup struct {
	customer string
	ruleType ScenarioType
	hits     []RuleHit
}

// Create opens or extends alerts for hits. customers supplies optional
// customer context keyed by customer id.
func (a *Alerter) Create(ctx context.Context, tenant string, hits []RuleHit, customers map[string]CustomerContext, cfg AlertConfig) (*AlertResult, error) {
	cfg = withAlertDefaults(cfg)
	res := &AlertResult{Created: []Alert{}, Updated: []Alert{}, Notifications: []Notification{}}
	window := time.Duration(cfg.GroupingWindowMinutes) * time.Minute

	for _, g := range groupHits(hits) {
		var cust *CustomerContext
		if c, ok := customers[g.customer]; ok {
			c.CustomerID = g.customer
			cust = &c
		}

		key := alertGroupKeyPrefix + tenant + ":" + g.customer + ":" + string(g.ruleType)
		var (
			alert   Alert
			created bool
		)
		_, err := a.store.Update(ctx, key, func(cur *store.Entry) (*store.Entry, error) {
			now := a.now()
			if cur != nil {
				var existing Alert
				if err := json.Unmarshal(cur.Value, &existing); err != nil {
					return nil, fmt.Errorf("decode alert group %s: %w", key, err)
				}
				alert = absorb(existing, g.hits, now, cfg)
				created = false
				value, err := json.Marshal(alert)
				if err != nil {
					return nil, err
				}
				return &store.Entry{Value: value, CreatedAt: cur.CreatedAt, ExpiresAt: cur.ExpiresAt}, nil
			}

			alert = a.open(g, cust, now, cfg)
			created = true
			value, err := json.Marshal(alert)
			if err != nil {
				return nil, err
			}
			return &store.Entry{Value: value, CreatedAt: now, ExpiresAt: now.Add(window)}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("alert group %s/%s: %w", g.customer, g.ruleType, err)
		}

		if !created {
			res.Updated = append(res.Updated, alert)
			continue
		}
		res.Created = append(res.Created, alert)
		if cfg.WebhookURL != "" && a.poster != nil {
			res.Notifications = append(res.Notifications, a.notify(ctx, cfg.WebhookURL, alert))
		}
	}
	return res, nil
}

func (a *Alerter) open(g hitGroup, cust *CustomerContext, now time.Time, cfg AlertConfig) Alert {
	severity := maxSeverity(g.hits)
	priority := PriorityFor(severity, cfg.SeverityPriorityMap)
	escalated := false
	if cust != nil && cust.HighRisk() && priority > 1 {
		priority--
		escalated = true
	}

	alert := Alert{
		AlertID:                  a.newID(),
		CustomerID:               g.customer,
		TriggeredRules:           ruleIDs(g.hits),
		PrimaryRuleType:          g.ruleType,
		Severity:                 severity,
		Priority:                 priority,
		ContributingTransactions: contributing(nil, g.hits),
		HitCount:                 len(g.hits),
		CustomerContext:          cust,
		Status:                   AlertOpen,
		SLADue:                   now.Add(SLAFor(priority, cfg.SLAMinutesByPriority)),
		CreatedAt:                now,
		UpdatedAt:                now,
		Tags:                     []string{string(g.ruleType)},
	}
	alert.WindowStart, alert.WindowEnd = hitWindow(g.hits)
	alert.Queue = Route(&alert, cfg.RoutingRules, cfg.DefaultQueue)

	details := fmt.Sprintf("opened from %d rule hit(s), severity %s, priority %d", len(g.hits), severity, priority)
	if escalated {
		details += " (escalated for high risk customer)"
		alert.Tags = append(alert.Tags, "ESCALATED_CUSTOMER_RISK")
	}
	alert.AuditLog = []AlertAuditEntry{{Timestamp: now, Action: "CREATED", Actor: alertActor, Details: details}}
	return alert
}

// absorb folds new hits into an open alert without creating a new one.
func absorb(alert Alert, hits []RuleHit, now time.Time, cfg AlertConfig) Alert {
	alert.HitCount += len(hits)
	alert.ContributingTransactions = contributing(alert.ContributingTransactions, hits)
	for _, id := range ruleIDs(hits) {
		if !containsFold(alert.TriggeredRules, id) {
			alert.TriggeredRules = append(alert.TriggeredRules, id)
		}
	}
	start, end := hitWindow(hits)
	if !start.IsZero() && (alert.WindowStart.IsZero() || start.Before(alert.WindowStart)) {
		alert.WindowStart = start
	}
	if end.After(alert.WindowEnd) {
		alert.WindowEnd = end
	}
	if s := maxSeverity(hits); s.Rank() > alert.Severity.Rank() {
		alert.Severity = s
		if p := PriorityFor(s, cfg.SeverityPriorityMap); p < alert.Priority {
			alert.Priority = p
			alert.SLADue = alert.CreatedAt.Add(SLAFor(p, cfg.SLAMinutesByPriority))
		}
	}
	alert.UpdatedAt = now
	alert.AuditLog = append(alert.AuditLog, AlertAuditEntry{
		Timestamp: now,
		Action:    "HITS_ABSORBED",
		Actor:     alertActor,
		Details:   fmt.Sprintf("%d rule hit(s) added; total %d", len(hits), alert.HitCount),
	})
	return alert
}

func (a *Alerter) notify(ctx context.Context, url string, alert Alert) Notification {
	n := Notification{AlertID: alert.AlertID}
	delivery, err := a.poster.Post(ctx, url, map[string]any{
		"event": "tm.alert.created",
		"alert": alert,
	})
	if delivery != nil {
		n.Attempts = delivery.Attempts
	}
	if err != nil {
		a.logger.Warn("alert webhook failed", "alert_id", alert.AlertID, "error", err)
		n.Error = err.Error()
		return n
	}
	n.Delivered = true
	return n
}

// PriorityFor maps a severity to a priority. Unmapped severities get the
// lowest priority.
func PriorityFor(s Severity, m map[string]int) int {
	if p, ok := m[string(s)]; ok && p > 0 {
		return p
	}
	return 4
}

// SLAFor returns the SLA duration for a priority, 24 hours when unmapped.
func SLAFor(priority int, m map[string]int) time.Duration {
	if mins, ok := m[strconv.Itoa(priority)]; ok && mins > 0 {
		return time.Duration(mins) * time.Minute
	}
	return 24 * time.Hour
}

// Route returns the queue of the first routing rule whose condition holds.
// Malformed conditions never match.
func Route(alert *Alert, rules []RoutingRule, fallback string) string {
	env := condition.MapEnv{
		"severity": string(alert.Severity),
		"priority": alert.Priority,
		"ruleType": string(alert.PrimaryRuleType),
		"hitCount": alert.HitCount,
	}
	if alert.CustomerContext != nil {
		env["customerRiskRating"] = alert.CustomerContext.RiskRating
	}
	for _, r := range rules {
		if r.Queue != "" && routingParser.Evaluate(r.Condition, env) {
			return r.Queue
		}
	}
	if fallback == "" {
		return DefaultQueue
	}
	return fallback
}

func withAlertDefaults(cfg AlertConfig) AlertConfig {
	def := DefaultAlertConfig()
	if cfg.GroupingWindowMinutes <= 0 {
		cfg.GroupingWindowMinutes = def.GroupingWindowMinutes
	}
	if len(cfg.SeverityPriorityMap) == 0 {
		cfg.SeverityPriorityMap = def.SeverityPriorityMap
	}
	if len(cfg.SLAMinutesByPriority) == 0 {
		cfg.SLAMinutesByPriority = def.SLAMinutesByPriority
	}
	if cfg.DefaultQueue == "" {
		cfg.DefaultQueue = def.DefaultQueue
	}
	return cfg
}

func groupHits(hits []RuleHit) []hitGroup {
	index := map[string]int{}
	var groups []hitGroup
	for _, h := range hits {
		k := h.CustomerID + "\x00" + string(h.RuleType)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, hitGroup{customer: h.CustomerID, ruleType: h.RuleType})
		}
		groups[i].hits = append(groups[i].hits, h)
	}
	return groups
}

func maxSeverity(hits []RuleHit) Severity {
	best := SeverityLow
	for _, h := range hits {
		if h.Severity.Rank() > best.Rank() {
			best = h.Severity
		}
	}
	return best
}

func ruleIDs(hits []RuleHit) []string {
	var out []string
	for _, h := range hits {
		if !containsFold(out, h.RuleID) {
			out = append(out, h.RuleID)
		}
	}
	return out
}

func contributing(existing []string, hits []RuleHit) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, id := range existing {
		seen[id] = true
	}
	for _, h := range hits {
		for _, id := range h.ContributingTransactions {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Strings(out[len(existing):])
	return out
}

func hitWindow(hits []RuleHit) (time.Time, time.Time) {
	var start, end time.Time
	for _, h := range hits {
		s, e := h.ComputedValues.WindowStart, h.ComputedValues.WindowEnd
		if !s.IsZero() && (start.IsZero() || s.Before(start)) {
			start = s
		}
		if e.After(end) {
			end = e
		}
	}
	return start, end
}
