package monitoring

import (
	"testing"
)

func TestNormalize_ConfiguredRates(t *testing.T) {
	eur := txn("txn_1", "cust_A", 15000, 0)
	eur.Currency = "EUR"
	eur.AmountBase = nil

	cfg := DefaultFXConfig()
	cfg.FXRates = map[string]float64{"EUR": 1.1, "USD": 1.0}

	res := Normalize([]Transaction{eur}, cfg)

	if len(res.Normalized) != 1 {
		t.Fatalf("Expected 1 normalized transaction, got %d", len(res.Normalized))
	}
	got := res.Normalized[0]
	if got.AmountBase == nil || *got.AmountBase != 16500 {
		t.Errorf("Expected amount_base 16500, got %v", got.AmountBase)
	}
	if got.FXStatus != FXStatusOK {
		t.Errorf("Expected fx_status OK, got %s", got.FXStatus)
	}
	if got.CurrencyOriginal != "EUR" {
		t.Errorf("Expected currency_original EUR, got %s", got.CurrencyOriginal)
	}
	if eur.AmountBase != nil {
		t.Error("Expected input transaction to be left unchanged")
	}
}

func TestNormalize_MissingRate(t *testing.T) {
	tests := []struct {
		behavior       MissingRateBehavior
		wantNormalized int
		wantBlocked    int
		wantStatus     FXStatus
		wantCode       string
	}{
		{MissingRateBlock, 0, 1, FXStatusMissing, CodeFXBlocked},
		{MissingRateWarn, 1, 0, FXStatusMissing, CodeFXMissingRate},
		{MissingRateFallback, 1, 0, FXStatusFallback, CodeFXMissingRate},
	}

	for _, tt := range tests {
		t.Run(string(tt.behavior), func(t *testing.T) {
			x := txn("txn_x", "cust_A", 200, 0)
			x.Currency = "XYZ"

			cfg := DefaultFXConfig()
			cfg.MissingRateBehavior = tt.behavior
			cfg.FallbackRate = 0.5

			res := Normalize([]Transaction{x}, cfg)

			if len(res.Normalized) != tt.wantNormalized || len(res.Blocked) != tt.wantBlocked {
				t.Fatalf("Expected %d normalized and %d blocked, got %d and %d",
					tt.wantNormalized, tt.wantBlocked, len(res.Normalized), len(res.Blocked))
			}
			if len(res.Issues) != 1 || res.Issues[0].Code != tt.wantCode || res.Issues[0].Behavior != tt.behavior {
				t.Errorf("Expected one %s issue recording %s, got %v", tt.wantCode, tt.behavior, res.Issues)
			}

			var got Transaction
			if tt.wantBlocked > 0 {
				got = res.Blocked[0]
			} else {
				got = res.Normalized[0]
				if *got.AmountBase != 100 {
					t.Errorf("Expected fallback conversion to 100, got %v", *got.AmountBase)
				}
			}
			if got.FXStatus != tt.wantStatus {
				t.Errorf("Expected fx_status %s, got %s", tt.wantStatus, got.FXStatus)
			}
		})
	}
}

func TestNormalize_DefaultTableAndRounding(t *testing.T) {
	jpy := txn("txn_j", "cust_A", 12345, 0)
	jpy.Currency = "JPY"

	res := Normalize([]Transaction{jpy}, DefaultFXConfig())

	if got := *res.Normalized[0].AmountBase; got != 82.71 {
		t.Errorf("Expected 82.71, got %v", got)
	}
}

func TestNormalize_Empty(t *testing.T) {
	res := Normalize(nil, DefaultFXConfig())
	if res.Normalized == nil || len(res.Normalized) != 0 || res.BaseCurrency != "USD" {
		t.Errorf("Expected empty USD result, got %+v", res)
	}
}
