// Package fx converts transaction amounts into a base currency.
//
// Rates are held as decimals and quoted as "base units per one unit of the
// currency". The built-in table is quoted against USD; any other base is
// derived by cross rate. Configured overrides are quoted against the
// configured base directly.
package fx

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBase is the base currency when none is configured.
const DefaultBase = "USD"

// DefaultUSDRates is the built-in rate table: USD per unit of currency.
var DefaultUSDRates = map[string]string{
	"USD": "1",
	"EUR": "1.08",
	"GBP": "1.27",
	"INR": "0.012",
	"JPY": "0.0067",
	"AED": "0.2723",
	"SGD": "0.74",
	"CHF": "1.13",
}

// Table is an immutable rate table for one base currency.
type Table struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewTable builds a table for base. overrides take precedence over the
// built-in rates and are quoted against base.
func NewTable(base string, overrides map[string]float64) *Table {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = DefaultBase
	}

	usd := make(map[string]decimal.Decimal, len(DefaultUSDRates))
	for c, r := range DefaultUSDRates {
		usd[c] = decimal.RequireFromString(r)
	}

	t := &Table{base: base, rates: make(map[string]decimal.Decimal)}
	if baseUSD, ok := usd[base]; ok && !baseUSD.IsZero() {
		for c, r := range usd {
			t.rates[c] = r.DivRound(baseUSD, 10)
		}
	}
	for c, r := range overrides {
		if r <= 0 {
			continue
		}
		t.rates[strings.ToUpper(c)] = decimal.NewFromFloat(r)
	}
	t.rates[base] = decimal.NewFromInt(1)
	return t
}

// Base returns the base currency.
func (t *Table) Base() string {
	return t.base
}

// Rate returns the rate for currency and whether it is known.
func (t *Table) Rate(currency string) (decimal.Decimal, bool) {
	r, ok := t.rates[strings.ToUpper(currency)]
	return r, ok
}

// Currencies returns the currencies with a known rate, sorted.
func (t *Table) Currencies() []string {
	out := make([]string, 0, len(t.rates))
	for c := range t.rates {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Convert multiplies amount by rate and rounds half away from zero to
// places decimals.
func Convert(amount float64, rate decimal.Decimal, places int32) decimal.Decimal {
	return decimal.NewFromFloat(amount).Mul(rate).Round(places)
}

// FromFloat converts a configured float rate into a decimal.
func FromFloat(r float64) decimal.Decimal {
	return decimal.NewFromFloat(r)
}
