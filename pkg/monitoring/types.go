package monitoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction is the flow of funds relative to the customer.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// FXStatus records how a transaction's base amount was obtained.
type FXStatus string

const (
	FXStatusOK       FXStatus = "OK"
	FXStatusMissing  FXStatus = "MISSING"
	FXStatusFallback FXStatus = "FALLBACK"
)

// ValidationStatus is the outcome of schema validation.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "VALID"
	ValidationInvalid ValidationStatus = "INVALID"
	ValidationWarning ValidationStatus = "WARNING"
)

// Severity ranks rule hits and alerts.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Issue is a validation error or warning, or an FX note.
type Issue struct {
	TxnID   string `json:"txn_id,omitempty"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transaction is a monitored payment. Fields after Metadata are stamped by
// pipeline stages.
type Transaction struct {
	TxnID               string         `json:"txn_id"`
	CustomerID          string         `json:"customer_id"`
	Timestamp           time.Time      `json:"timestamp"`
	Amount              float64        `json:"amount"`
	Currency            string         `json:"currency"`
	Direction           Direction      `json:"direction"`
	Channel             string         `json:"channel"`
	CounterpartyID      string         `json:"counterparty_id,omitempty"`
	CounterpartyName    string         `json:"counterparty_name,omitempty"`
	CounterpartyCountry string         `json:"counterparty_country,omitempty"`
	CounterpartyAccount string         `json:"counterparty_account,omitempty"`
	MerchantCategory    string         `json:"merchant_category,omitempty"`
	PurposeCode         string         `json:"purpose_code,omitempty"`
	Reference           string         `json:"reference,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`

	AmountBase         *float64         `json:"amount_base,omitempty"`
	CurrencyOriginal   string           `json:"currency_original,omitempty"`
	FXRate             *float64         `json:"fx_rate,omitempty"`
	FXStatus           FXStatus         `json:"fx_status,omitempty"`
	ValidationStatus   ValidationStatus `json:"validation_status,omitempty"`
	ValidationWarnings []Issue          `json:"validation_warnings,omitempty"`
	IsDuplicate        bool             `json:"is_duplicate,omitempty"`
	DuplicateOf        string           `json:"duplicate_of,omitempty"`
	DedupKey           string           `json:"dedup_key,omitempty"`
	AlertOnDuplicate   bool             `json:"alert_on_duplicate,omitempty"`
}

// BaseAmount is the normalized amount, or the raw amount before
// normalization has run.
func (t *Transaction) BaseAmount() float64 {
	if t.AmountBase != nil {
		return *t.AmountBase
	}
	return t.Amount
}

// Field returns a string rendering of a field by its JSON name. It is used
// for content hashing.
func (t *Transaction) Field(name string) string {
	switch name {
	case "txn_id":
		return t.TxnID
	case "customer_id":
		return t.CustomerID
	case "timestamp":
		return t.Timestamp.UTC().Format(time.RFC3339Nano)
	case "amount":
		return strconv.FormatFloat(t.Amount, 'f', -1, 64)
	case "currency":
		return t.Currency
	case "direction":
		return string(t.Direction)
	case "channel":
		return t.Channel
	case "counterparty_id":
		return t.CounterpartyID
	case "counterparty_name":
		return t.CounterpartyName
	case "counterparty_country":
		return t.CounterpartyCountry
	case "counterparty_account":
		return t.CounterpartyAccount
	case "merchant_category":
		return t.MerchantCategory
	case "purpose_code":
		return t.PurposeCode
	case "reference":
		return t.Reference
	}
	return ""
}

func (t Transaction) clone() Transaction {
	if t.Metadata != nil {
		md := make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			md[k] = v
		}
		t.Metadata = md
	}
	if t.ValidationWarnings != nil {
		t.ValidationWarnings = append([]Issue(nil), t.ValidationWarnings...)
	}
	if t.AmountBase != nil {
		v := *t.AmountBase
		t.AmountBase = &v
	}
	if t.FXRate != nil {
		v := *t.FXRate
		t.FXRate = &v
	}
	return t
}

// ScenarioType names a detection scenario.
type ScenarioType string

const (
	ScenarioHighValue        ScenarioType = "HIGH_VALUE"
	ScenarioHighFrequency    ScenarioType = "HIGH_FREQUENCY"
	ScenarioVelocity         ScenarioType = "VELOCITY"
	ScenarioStructuring      ScenarioType = "STRUCTURING"
	ScenarioHighRiskCorridor ScenarioType = "HIGH_RISK_CORRIDOR"
	ScenarioUnusualPattern   ScenarioType = "UNUSUAL_PATTERN"
)

// ScenarioRule is a declarative detection rule.
type ScenarioRule struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	Type                   ScenarioType `json:"type"`
	Enabled                *bool        `json:"enabled,omitempty"`
	AmountThreshold        float64      `json:"amountThreshold,omitempty"`
	CountThreshold         int          `json:"countThreshold,omitempty"`
	VelocityThreshold      float64      `json:"velocityThreshold,omitempty"`
	StructuringBand        float64      `json:"structuringBand,omitempty"`
	RiskCountries          []string     `json:"riskCountries,omitempty"`
	RiskMerchantCategories []string     `json:"riskMerchantCategories,omitempty"`
	WindowMinutes          int          `json:"windowMinutes,omitempty"`
	Severity               Severity     `json:"severity,omitempty"`
}

// IsEnabled reports whether the rule runs. Rules are enabled unless
// explicitly disabled.
func (r *ScenarioRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ComputedValues are the metrics that made a rule fire.
type ComputedValues struct {
	Amount               float64   `json:"amount,omitempty"`
	Count                int       `json:"count,omitempty"`
	Velocity             float64   `json:"velocity,omitempty"`
	UniqueCounterparties int       `json:"uniqueCounterparties,omitempty"`
	WindowStart          time.Time `json:"windowStart"`
	WindowEnd            time.Time `json:"windowEnd"`
}

// RuleThresholds are the thresholds a hit was evaluated against.
type RuleThresholds struct {
	Amount   float64 `json:"amount,omitempty"`
	Count    int     `json:"count,omitempty"`
	Velocity float64 `json:"velocity,omitempty"`
}

// RuleHit is one (customer, rule) match.
type RuleHit struct {
	RuleID                   string         `json:"ruleId"`
	RuleName                 string         `json:"ruleName"`
	RuleType                 ScenarioType   `json:"ruleType"`
	Severity                 Severity       `json:"severity"`
	CustomerID               string         `json:"customerId"`
	ComputedValues           ComputedValues `json:"computedValues"`
	Thresholds               RuleThresholds `json:"thresholds"`
	ContributingTransactions []string       `json:"contributingTransactions"`
	Explanation              string         `json:"explanation"`
	Timestamp                time.Time      `json:"timestamp"`
}

// AggregatedMetrics is a per-customer snapshot over a window.
type AggregatedMetrics struct {
	CustomerID           string    `json:"customer_id"`
	WindowStart          time.Time `json:"window_start"`
	WindowEnd            time.Time `json:"window_end"`
	Count                int       `json:"count"`
	SumIn                float64   `json:"sum_in"`
	SumOut               float64   `json:"sum_out"`
	CountIn              int       `json:"count_in"`
	CountOut             int       `json:"count_out"`
	UniqueCounterparties int       `json:"unique_counterparties"`
	Velocity             float64   `json:"velocity"`
	AvgAmount            float64   `json:"avg_amount"`
	MaxAmount            float64   `json:"max_amount"`
}

// AlertStatus is an alert lifecycle state.
type AlertStatus string

const (
	AlertOpen          AlertStatus = "OPEN"
	AlertInReview      AlertStatus = "IN_REVIEW"
	AlertEscalated     AlertStatus = "ESCALATED"
	AlertClosed        AlertStatus = "CLOSED"
	AlertFalsePositive AlertStatus = "FALSE_POSITIVE"
)

// AlertAuditEntry is one line in an alert's own history.
type AlertAuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details,omitempty"`
}

// CustomerContext carries customer attributes relevant to alerting.
type CustomerContext struct {
	CustomerID string `json:"customer_id"`
	RiskRating string `json:"risk_rating,omitempty"`
	Segment    string `json:"segment,omitempty"`
}

// HighRisk reports whether the customer is rated HIGH.
func (c CustomerContext) HighRisk() bool {
	return strings.EqualFold(c.RiskRating, "HIGH")
}

// Alert aggregates rule hits for one customer and rule type inside a
// grouping window.
type Alert struct {
	AlertID                  string            `json:"alert_id"`
	CustomerID               string            `json:"customer_id"`
	TriggeredRules           []string          `json:"triggered_rules"`
	PrimaryRuleType          ScenarioType      `json:"primary_rule_type"`
	Severity                 Severity          `json:"severity"`
	Priority                 int               `json:"priority"`
	WindowStart              time.Time         `json:"window_start"`
	WindowEnd                time.Time         `json:"window_end"`
	ContributingTransactions []string          `json:"contributing_transactions"`
	HitCount                 int               `json:"hit_count"`
	CustomerContext          *CustomerContext  `json:"customer_context,omitempty"`
	Status                   AlertStatus       `json:"status"`
	Queue                    string            `json:"queue"`
	SLADue                   time.Time         `json:"sla_due"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
	AuditLog                 []AlertAuditEntry `json:"audit_log"`
	Tags                     []string          `json:"tags,omitempty"`
}

// DecodeTransactions converts a list held in execution data into
// transactions. It accepts []Transaction directly or any JSON-compatible
// list of objects. Elements that cannot be decoded are skipped and counted.
func DecodeTransactions(v any) ([]Transaction, int) {
	switch list := v.(type) {
	case nil:
		return nil, 0
	case []Transaction:
		out := make([]Transaction, len(list))
		for i := range list {
			out[i] = list[i].clone()
		}
		return out, 0
	case []any:
		out := make([]Transaction, 0, len(list))
		skipped := 0
		for _, item := range list {
			if t, ok := item.(Transaction); ok {
				out = append(out, t.clone())
				continue
			}
			raw, err := json.Marshal(item)
			if err != nil {
				skipped++
				continue
			}
			var t Transaction
			if err := json.Unmarshal(raw, &t); err != nil {
				skipped++
				continue
			}
			out = append(out, t)
		}
		return out, skipped
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, 1
		}
		var out []Transaction
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, 1
		}
		return out, 0
	}
}

// Records converts a raw input list into records for validation. Elements
// that are not objects become empty records so they fail validation rather
// than vanish.
func Records(v any) []map[string]any {
	switch list := v.(type) {
	case nil:
		return nil
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, len(list))
		for i, item := range list {
			if m, ok := item.(map[string]any); ok {
				out[i] = m
				continue
			}
			out[i] = toRecord(item)
		}
		return out
	case []Transaction:
		out := make([]map[string]any, len(list))
		for i := range list {
			out[i] = toRecord(list[i])
		}
		return out
	}
	return nil
}

func toRecord(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
