package fx

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTable_DefaultUSD(t *testing.T) {
	table := NewTable("", nil)

	if table.Base() != "USD" {
		t.Errorf("Expected base USD, got %s", table.Base())
	}
	r, ok := table.Rate("eur")
	if !ok {
		t.Fatal("Expected EUR rate to be known")
	}
	if !r.Equal(decimal.RequireFromString("1.08")) {
		t.Errorf("Expected EUR rate 1.08, got %s", r)
	}
	if _, ok := table.Rate("XYZ"); ok {
		t.Error("Expected XYZ to be unknown")
	}
}

func TestTable_Overrides(t *testing.T) {
	table := NewTable("USD", map[string]float64{"EUR": 1.1, "BAD": -1})

	got := Convert(15000, mustRate(t, table, "EUR"), 2)
	if !got.Equal(decimal.NewFromInt(16500)) {
		t.Errorf("Expected 16500, got %s", got)
	}
	if _, ok := table.Rate("BAD"); ok {
		t.Error("Expected non-positive override to be ignored")
	}
}

func TestTable_CrossRate(t *testing.T) {
	table := NewTable("EUR", nil)

	if r := mustRate(t, table, "EUR"); !r.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected base rate 1, got %s", r)
	}
	// 1.08 EUR-in-USD means 1 USD is 1/1.08 EUR.
	got := Convert(108, mustRate(t, table, "USD"), 2)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected 100, got %s", got)
	}
}

func TestTable_UnknownBase(t *testing.T) {
	table := NewTable("XAU", map[string]float64{"USD": 0.0005})

	if _, ok := table.Rate("EUR"); ok {
		t.Error("Expected no cross rates for a base outside the built-in table")
	}
	if _, ok := table.Rate("USD"); !ok {
		t.Error("Expected override to be present")
	}
	if len(table.Currencies()) != 2 {
		t.Errorf("Expected 2 currencies, got %v", table.Currencies())
	}
}

func TestConvert_Rounding(t *testing.T) {
	tests := []struct {
		amount float64
		rate   string
		places int32
		want   string
	}{
		{10, "0.333333", 2, "3.33"},
		{1, "0.125", 2, "0.13"},
		{1000, "0.0067", 0, "7"},
		{99.99, "1", 1, "100"},
	}

	for _, tt := range tests {
		got := Convert(tt.amount, decimal.RequireFromString(tt.rate), tt.places)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Convert(%v, %s, %d): expected %s, got %s", tt.amount, tt.rate, tt.places, tt.want, got)
		}
	}
}

func mustRate(t *testing.T, table *Table, c string) decimal.Decimal {
	t.Helper()
	r, ok := table.Rate(c)
	if !ok {
		t.Fatalf("Expected rate for %s", c)
	}
	return r
}
