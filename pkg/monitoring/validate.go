package monitoring

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationMode controls how unknown currencies and channels are treated.
type ValidationMode string

const (
	// ModeStrict rejects unknown currencies and channels.
	ModeStrict ValidationMode = "strict"
	// ModeLenient accepts them with a warning.
	ModeLenient ValidationMode = "lenient"
)

// Validation issue codes.
const (
	CodeMissingField        = "MISSING_FIELD"
	CodeInvalidType         = "INVALID_TYPE"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidCurrency     = "INVALID_CURRENCY"
	CodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	CodeUnsupportedChannel  = "UNSUPPORTED_CHANNEL"
	CodeInvalidDirection    = "INVALID_DIRECTION"
	CodeInvalidTimestamp    = "INVALID_TIMESTAMP"
	CodeFutureTimestamp     = "FUTURE_TIMESTAMP"
	CodeSelfTransfer        = "SELF_TRANSFER"
	CodeInvalidCountry      = "INVALID_COUNTRY_CODE"
	CodeAmountCoerced       = "AMOUNT_COERCED"
	CodeInvalidMetadata     = "INVALID_METADATA"
)

// ValidationConfig configures Validate. JSON names follow the node config.
type ValidationConfig struct {
	RequiredFields            []string       `json:"requiredFields"`
	AllowedCurrencies         []string       `json:"allowedCurrencies"`
	AllowedChannels           []string       `json:"allowedChannels"`
	AllowedDirections         []string       `json:"allowedDirections"`
	MaxFutureTimestampDriftMs int64          `json:"maxFutureTimestampDriftMs"`
	Mode                      ValidationMode `json:"mode"`
	EnrichDefaults            bool           `json:"enrichDefaults"`
}

// DefaultValidationConfig returns the default schema rules.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		RequiredFields:            []string{"txn_id", "customer_id", "timestamp", "amount", "currency", "direction", "channel"},
		AllowedCurrencies:         []string{"USD", "EUR", "GBP", "INR", "JPY", "AED", "SGD", "CHF"},
		AllowedChannels:           []string{"UPI", "CARD", "WIRE", "WALLET", "ACH", "SWIFT", "RTGS"},
		AllowedDirections:         []string{"IN", "OUT"},
		MaxFutureTimestampDriftMs: (5 * time.Minute).Milliseconds(),
		Mode:                      ModeStrict,
		EnrichDefaults:            true,
	}
}

// InvalidTransaction is a record that failed validation, kept as received.
type InvalidTransaction struct {
	TxnID  string         `json:"txn_id,omitempty"`
	Record map[string]any `json:"record"`
	Errors []Issue        `json:"errors"`
}

// ValidationResult segregates valid and invalid records.
type ValidationResult struct {
	Valid    []Transaction        `json:"valid"`
	Invalid  []InvalidTransaction `json:"invalid"`
	Errors   []Issue              `json:"errors"`
	Warnings []Issue              `json:"warnings"`
}

// Validate checks each record and converts the ones that pass into
// transactions. now anchors the future-drift check.
func Validate(records []map[string]any, cfg ValidationConfig, now time.Time) *ValidationResult {
	res := &ValidationResult{
		Valid:    []Transaction{},
		Invalid:  []InvalidTransaction{},
		Errors:   []Issue{},
		Warnings: []Issue{},
	}
	for _, rec := range records {
		v := &recordValidator{cfg: cfg, now: now, rec: rec}
		txn := v.run()
		res.Warnings = append(res.Warnings, v.warnings...)
		if len(v.errors) > 0 {
			res.Errors = append(res.Errors, v.errors...)
			res.Invalid = append(res.Invalid, InvalidTransaction{
				TxnID:  v.txnID(),
				Record: rec,
				Errors: v.errors,
			})
			continue
		}
		res.Valid = append(res.Valid, txn)
	}
	return res
}

type recordValidator struct {
	cfg      ValidationConfig
	now      time.Time
	rec      map[string]any
	errors   []Issue
	warnings []Issue
}

func (v *recordValidator) txnID() string {
	s, _ := v.rec["txn_id"].(string)
	return s
}

func (v *recordValidator) fail(field, code, format string, args ...any) {
	v.errors = append(v.errors, Issue{TxnID: v.txnID(), Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (v *recordValidator) warn(field, code, format string, args ...any) {
	v.warnings = append(v.warnings, Issue{TxnID: v.txnID(), Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// unsupported records an enum miss as an error in strict mode and a warning
// otherwise.
func (v *recordValidator) unsupported(field, code, format string, args ...any) {
	if v.cfg.Mode == ModeLenient {
		v.warn(field, code, format, args...)
		return
	}
	v.fail(field, code, format, args...)
}

func (v *recordValidator) run() Transaction {
	var t Transaction

	for _, f := range v.cfg.RequiredFields {
		val, ok := v.rec[f]
		if !ok || val == nil || val == "" {
			v.fail(f, CodeMissingField, "required field %s is missing", f)
		}
	}

	t.TxnID = v.str("txn_id")
	t.CustomerID = v.str("customer_id")
	t.Channel = v.str("channel")
	t.CounterpartyID = v.str("counterparty_id")
	t.CounterpartyName = v.str("counterparty_name")
	t.CounterpartyCountry = v.str("counterparty_country")
	t.CounterpartyAccount = v.str("counterparty_account")
	t.MerchantCategory = v.str("merchant_category")
	t.PurposeCode = v.str("purpose_code")
	t.Reference = v.str("reference")

	v.checkAmount(&t)
	v.checkCurrency(&t)
	v.checkChannel(&t)
	v.checkDirection(&t)
	v.checkTimestamp(&t)
	v.checkCrossField(&t)

	if md, ok := v.rec["metadata"]; ok && md != nil {
		if m, ok := md.(map[string]any); ok {
			t.Metadata = m
		} else {
			v.warn("metadata", CodeInvalidMetadata, "metadata must be an object, got %s", describe(md))
		}
	}

	if v.cfg.EnrichDefaults {
		enrich(&t)
	}

	t.ValidationStatus = ValidationValid
	if len(v.warnings) > 0 {
		t.ValidationStatus = ValidationWarning
		t.ValidationWarnings = append([]Issue(nil), v.warnings...)
	}
	return t.clone()
}

// str reads an optional string field. Non-string values are type errors.
func (v *recordValidator) str(field string) string {
	val, ok := v.rec[field]
	if !ok || val == nil {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		v.fail(field, CodeInvalidType, "%s must be a string, got %s", field, describe(val))
		return ""
	}
	return strings.TrimSpace(s)
}

func (v *recordValidator) checkAmount(t *Transaction) {
	val, ok := v.rec["amount"]
	if !ok || val == nil {
		return
	}
	var amount float64
	switch n := val.(type) {
	case float64:
		amount = n
	case float32:
		amount = float64(n)
	case int:
		amount = float64(n)
	case int64:
		amount = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			v.fail("amount", CodeInvalidType, "amount %q is not a number", n)
			return
		}
		amount = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || v.cfg.Mode != ModeLenient {
			v.fail("amount", CodeInvalidType, "amount must be a number, got string")
			return
		}
		v.warn("amount", CodeAmountCoerced, "amount %q coerced to a number", n)
		amount = f
	default:
		v.fail("amount", CodeInvalidType, "amount must be a number, got %s", describe(val))
		return
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		v.fail("amount", CodeInvalidAmount, "amount must be greater than zero, got %v", amount)
		return
	}
	t.Amount = amount
}

func (v *recordValidator) checkCurrency(t *Transaction) {
	c := strings.ToUpper(v.str("currency"))
	if c == "" {
		return
	}
	if len(c) != 3 || strings.IndexFunc(c, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		v.fail("currency", CodeInvalidCurrency, "currency %q is not an ISO 4217 code", c)
		return
	}
	if !containsFold(v.cfg.AllowedCurrencies, c) {
		v.unsupported("currency", CodeUnsupportedCurrency, "currency %s is not supported", c)
	}
	t.Currency = c
}

func (v *recordValidator) checkChannel(t *Transaction) {
	if t.Channel == "" {
		return
	}
	if !containsFold(v.cfg.AllowedChannels, t.Channel) {
		v.unsupported("channel", CodeUnsupportedChannel, "channel %s is not supported", t.Channel)
	}
}

func (v *recordValidator) checkDirection(t *Transaction) {
	d := strings.ToUpper(v.str("direction"))
	if d == "" {
		return
	}
	if !containsFold(v.cfg.AllowedDirections, d) {
		v.fail("direction", CodeInvalidDirection, "direction %s is not one of %s", d, strings.Join(v.cfg.AllowedDirections, ", "))
		return
	}
	t.Direction = Direction(d)
}

func (v *recordValidator) checkTimestamp(t *Transaction) {
	val, ok := v.rec["timestamp"]
	if !ok || val == nil || val == "" {
		return
	}
	ts, err := parseTimestamp(val)
	if err != nil {
		v.fail("timestamp", CodeInvalidTimestamp, "%v", err)
		return
	}
	drift := time.Duration(v.cfg.MaxFutureTimestampDriftMs) * time.Millisecond
	if ts.After(v.now.Add(drift)) {
		v.fail("timestamp", CodeFutureTimestamp, "timestamp %s is more than %s in the future", ts.Format(time.RFC3339), drift)
		return
	}
	t.Timestamp = ts
}

func (v *recordValidator) checkCrossField(t *Transaction) {
	if t.CounterpartyID != "" && t.CounterpartyID == t.CustomerID {
		v.warn("counterparty_id", CodeSelfTransfer, "counterparty is the customer")
	}
	if c := t.CounterpartyCountry; c != "" && len(c) != 2 {
		v.warn("counterparty_country", CodeInvalidCountry, "counterparty_country %q is not an ISO 3166 alpha-2 code", c)
	}
}

func enrich(t *Transaction) {
	t.Channel = strings.ToUpper(t.Channel)
	t.CounterpartyCountry = strings.ToUpper(t.CounterpartyCountry)
	if t.CounterpartyCountry == "" {
		t.CounterpartyCountry = "UNKNOWN"
	}
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Timestamp = t.Timestamp.UTC()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(ts)); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("timestamp %q is not a valid date", ts)
	case float64:
		return time.UnixMilli(int64(ts)), nil
	case int64:
		return time.UnixMilli(ts), nil
	case int:
		return time.UnixMilli(int64(ts)), nil
	}
	return time.Time{}, fmt.Errorf("timestamp must be a string or epoch milliseconds, got %s", describe(v))
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(x string) bool { return strings.EqualFold(x, s) })
}
