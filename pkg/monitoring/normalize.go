package monitoring

import (
	"fmt"
	"strings"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/fx"
)

// MissingRateBehavior decides what happens when no rate is known.
type MissingRateBehavior string

const (
	// MissingRateBlock removes the transaction from the normalized set.
	MissingRateBlock MissingRateBehavior = "block"
	// MissingRateWarn converts with the fallback rate and raises a warning.
	MissingRateWarn MissingRateBehavior = "warn"
	// MissingRateFallback converts with the fallback rate silently.
	MissingRateFallback MissingRateBehavior = "fallback"
)

// FX issue codes.
const (
	CodeFXMissingRate = "FX_MISSING_RATE"
	CodeFXBlocked     = "FX_BLOCKED"
)

// FXConfig configures Normalize. JSON names follow the node config.
type FXConfig struct {
	BaseCurrency        string              `json:"baseCurrency"`
	FXRates             map[string]float64  `json:"fxRates"`
	RoundingDecimals    int32               `json:"roundingDecimals"`
	MissingRateBehavior MissingRateBehavior `json:"missingRateBehavior"`
	FallbackRate        float64             `json:"fallbackRate"`
}

// DefaultFXConfig returns USD base, 2 decimals, warn with fallback 1.
func DefaultFXConfig() FXConfig {
	return FXConfig{
		BaseCurrency:        fx.DefaultBase,
		RoundingDecimals:    2,
		MissingRateBehavior: MissingRateWarn,
		FallbackRate:        1,
	}
}

// FXIssue records a per-transaction conversion decision.
type FXIssue struct {
	TxnID    string              `json:"txn_id"`
	Currency string              `json:"currency"`
	Behavior MissingRateBehavior `json:"behavior"`
	Code     string              `json:"code"`
	Message  string              `json:"message"`
}

// NormalizeResult holds the converted set, the blocked set and one issue per
// transaction that lacked a rate.
type NormalizeResult struct {
	BaseCurrency string        `json:"baseCurrency"`
	Normalized   []Transaction `json:"normalized"`
	Blocked      []Transaction `json:"blocked"`
	Issues       []FXIssue     `json:"issues"`
}

// Normalize converts each transaction amount into cfg.BaseCurrency.
func Normalize(txns []Transaction, cfg FXConfig) *NormalizeResult {
	table := fx.NewTable(cfg.BaseCurrency, cfg.FXRates)
	fallback := cfg.FallbackRate
	if fallback <= 0 {
		fallback = 1
	}
	behavior := cfg.MissingRateBehavior
	if behavior == "" {
		behavior = MissingRateWarn
	}

	res := &NormalizeResult{
		BaseCurrency: table.Base(),
		Normalized:   []Transaction{},
		Blocked:      []Transaction{},
		Issues:       []FXIssue{},
	}

	for _, src := range txns {
		t := src.clone()
		currency := strings.ToUpper(t.Currency)
		t.CurrencyOriginal = currency

		rate, ok := table.Rate(currency)
		status := FXStatusOK
		if !ok {
			issue := FXIssue{TxnID: t.TxnID, Currency: currency, Behavior: behavior}
			if behavior == MissingRateBlock {
				issue.Code = CodeFXBlocked
				issue.Message = fmt.Sprintf("no %s/%s rate; transaction blocked", currency, table.Base())
				res.Issues = append(res.Issues, issue)
				t.FXStatus = FXStatusMissing
				res.Blocked = append(res.Blocked, t)
				continue
			}
			issue.Code = CodeFXMissingRate
			issue.Message = fmt.Sprintf("no %s/%s rate; fallback rate %v applied", currency, table.Base(), fallback)
			res.Issues = append(res.Issues, issue)

			rate = fx.FromFloat(fallback)
			status = FXStatusFallback
			if behavior == MissingRateWarn {
				status = FXStatusMissing
			}
		}

		base := fx.Convert(t.Amount, rate, cfg.RoundingDecimals).InexactFloat64()
		r := rate.InexactFloat64()
		t.AmountBase = &base
		t.FXRate = &r
		t.FXStatus = status
		res.Normalized = append(res.Normalized, t)
	}
	return res
}
