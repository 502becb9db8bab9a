package monitoring

import (
	"testing"
	"time"
)

func TestValidate_ValidRecord(t *testing.T) {
	rec := record("txn_1", "cust_A", 100.5, "usd")
	rec["channel"] = "wire"

	res := Validate([]map[string]any{rec}, DefaultValidationConfig(), testNow)

	if len(res.Valid) != 1 || len(res.Invalid) != 0 {
		t.Fatalf("Expected 1 valid and 0 invalid, got %d and %d (%v)", len(res.Valid), len(res.Invalid), res.Errors)
	}
	got := res.Valid[0]
	if got.Currency != "USD" {
		t.Errorf("Expected currency USD, got %s", got.Currency)
	}
	if got.Channel != "WIRE" {
		t.Errorf("Expected channel WIRE, got %s", got.Channel)
	}
	if got.CounterpartyCountry != "UNKNOWN" {
		t.Errorf("Expected enriched counterparty_country UNKNOWN, got %q", got.CounterpartyCountry)
	}
	if got.ValidationStatus != ValidationValid {
		t.Errorf("Expected status VALID, got %s", got.ValidationStatus)
	}
	if got.Amount != 100.5 {
		t.Errorf("Expected amount 100.5, got %v", got.Amount)
	}
	if rec["currency"] != "usd" {
		t.Error("Expected input record to be left unchanged")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		code   string
	}{
		{"missing customer", func(r map[string]any) { delete(r, "customer_id") }, CodeMissingField},
		{"empty txn id", func(r map[string]any) { r["txn_id"] = "" }, CodeMissingField},
		{"negative amount", func(r map[string]any) { r["amount"] = -100.0 }, CodeInvalidAmount},
		{"zero amount", func(r map[string]any) { r["amount"] = 0.0 }, CodeInvalidAmount},
		{"string amount", func(r map[string]any) { r["amount"] = "100" }, CodeInvalidType},
		{"bool amount", func(r map[string]any) { r["amount"] = true }, CodeInvalidType},
		{"currency format", func(r map[string]any) { r["currency"] = "US" }, CodeInvalidCurrency},
		{"unsupported currency", func(r map[string]any) { r["currency"] = "XYZ" }, CodeUnsupportedCurrency},
		{"unsupported channel", func(r map[string]any) { r["channel"] = "UNKNOWN" }, CodeUnsupportedChannel},
		{"direction", func(r map[string]any) { r["direction"] = "SIDEWAYS" }, CodeInvalidDirection},
		{"bad timestamp", func(r map[string]any) { r["timestamp"] = "yesterday" }, CodeInvalidTimestamp},
		{"future timestamp", func(r map[string]any) { r["timestamp"] = testNow.Add(24 * time.Hour).Format(time.RFC3339) }, CodeFutureTimestamp},
		{"numeric customer", func(r map[string]any) { r["customer_id"] = 42.0 }, CodeInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("txn_1", "cust_A", 100.0, "USD")
			tt.mutate(rec)

			res := Validate([]map[string]any{rec}, DefaultValidationConfig(), testNow)

			if len(res.Invalid) != 1 {
				t.Fatalf("Expected 1 invalid transaction, got %d", len(res.Invalid))
			}
			found := false
			for _, e := range res.Invalid[0].Errors {
				if e.Code == tt.code {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error code %s, got %v", tt.code, res.Invalid[0].Errors)
			}
			if len(res.Errors) != len(res.Invalid[0].Errors) {
				t.Errorf("Expected flattened errors to match, got %d vs %d", len(res.Errors), len(res.Invalid[0].Errors))
			}
		})
	}
}

func TestValidate_DriftTolerance(t *testing.T) {
	rec := record("txn_1", "cust_A", 100.0, "USD")
	rec["timestamp"] = testNow.Add(4 * time.Minute).Format(time.RFC3339)

	res := Validate([]map[string]any{rec}, DefaultValidationConfig(), testNow)
	if len(res.Valid) != 1 {
		t.Errorf("Expected timestamp within drift to be valid, got errors %v", res.Errors)
	}
}

func TestValidate_LenientMode(t *testing.T) {
	cfg := DefaultValidationConfig()
	cfg.Mode = ModeLenient

	rec := record("txn_1", "cust_A", "250.75", "XYZ")
	rec["channel"] = "CARRIER_PIGEON"

	res := Validate([]map[string]any{rec}, cfg, testNow)

	if len(res.Valid) != 1 {
		t.Fatalf("Expected lenient mode to accept the record, got errors %v", res.Errors)
	}
	got := res.Valid[0]
	if got.ValidationStatus != ValidationWarning {
		t.Errorf("Expected status WARNING, got %s", got.ValidationStatus)
	}
	if len(res.Warnings) != 3 {
		t.Errorf("Expected 3 warnings, got %d: %v", len(res.Warnings), res.Warnings)
	}
	if got.Amount != 250.75 {
		t.Errorf("Expected coerced amount 250.75, got %v", got.Amount)
	}
}

func TestValidate_LenientStillRejectsBadAmount(t *testing.T) {
	cfg := DefaultValidationConfig()
	cfg.Mode = ModeLenient

	res := Validate([]map[string]any{record("txn_1", "cust_A", -5.0, "XYZ")}, cfg, testNow)
	if len(res.Invalid) != 1 {
		t.Errorf("Expected negative amount to be invalid in lenient mode")
	}
}

func TestValidate_CrossFieldWarnings(t *testing.T) {
	rec := record("txn_1", "cust_A", 100.0, "USD")
	rec["counterparty_id"] = "cust_A"
	rec["counterparty_country"] = "FRA"

	res := Validate([]map[string]any{rec}, DefaultValidationConfig(), testNow)

	if len(res.Valid) != 1 {
		t.Fatalf("Expected warnings only, got errors %v", res.Errors)
	}
	codes := map[string]bool{}
	for _, w := range res.Warnings {
		codes[w.Code] = true
	}
	if !codes[CodeSelfTransfer] || !codes[CodeInvalidCountry] {
		t.Errorf("Expected SELF_TRANSFER and INVALID_COUNTRY_CODE warnings, got %v", res.Warnings)
	}
}

func TestValidate_EpochTimestamp(t *testing.T) {
	rec := record("txn_1", "cust_A", 100.0, "USD")
	rec["timestamp"] = float64(testNow.Add(-time.Hour).UnixMilli())

	res := Validate([]map[string]any{rec}, DefaultValidationConfig(), testNow)
	if len(res.Valid) != 1 {
		t.Fatalf("Expected epoch timestamp to be valid, got %v", res.Errors)
	}
	if !res.Valid[0].Timestamp.Equal(testNow.Add(-time.Hour)) {
		t.Errorf("Expected %s, got %s", testNow.Add(-time.Hour), res.Valid[0].Timestamp)
	}
}

func TestValidate_Empty(t *testing.T) {
	res := Validate(nil, DefaultValidationConfig(), testNow)
	if res.Valid == nil || res.Invalid == nil || len(res.Valid)+len(res.Invalid) != 0 {
		t.Errorf("Expected empty non-nil result sets, got %+v", res)
	}
}

func TestRecords(t *testing.T) {
	raw := []any{
		map[string]any{"txn_id": "a"},
		"not an object",
		txn("b", "cust", 10, 0),
	}
	recs := Records(raw)
	if len(recs) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recs))
	}
	if recs[2]["txn_id"] != "b" {
		t.Errorf("Expected transaction to convert into a record, got %v", recs[2])
	}
	res := Validate(recs, DefaultValidationConfig(), testNow)
	if len(res.Invalid) != 2 {
		t.Errorf("Expected 2 invalid records, got %d", len(res.Invalid))
	}
}
