// Package risk implements weighted multi-factor risk scoring.
//
// Each factor carries a weight and an indicator in [0,1]. The normalized
// score is sum(weight*indicator)/sum(weight), capped at 1, then optionally
// multiplied and floored. Factors with a zero weight are skipped entirely.
// The score is classified LOW/MEDIUM/HIGH with inclusive lower bounds.
package risk

import (
	"fmt"
	"math"
)

// Level is a risk classification.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Factor names a risk factor.
type Factor string

const (
	FactorSanctions        Factor = "sanctions"
	FactorPEP              Factor = "pep"
	FactorWatchlist        Factor = "watchlist"
	FactorAdverseMedia     Factor = "adverseMedia"
	FactorFraudCheck       Factor = "fraudCheck"
	FactorLivenessCheck    Factor = "livenessCheck"
	FactorFaceMatch        Factor = "faceMatch"
	FactorTMAlerts         Factor = "tmAlerts"
	FactorTMRuleHits       Factor = "tmRuleHits"
	FactorHighRiskCorridor Factor = "highRiskCorridor"
)

// Factors lists every factor in evaluation order.
var Factors = []Factor{
	FactorSanctions, FactorPEP, FactorWatchlist, FactorAdverseMedia,
	FactorFraudCheck, FactorLivenessCheck, FactorFaceMatch,
	FactorTMAlerts, FactorTMRuleHits, FactorHighRiskCorridor,
}

// Weights maps factors to weights.
type Weights map[Factor]float64

// DefaultWeights returns the default factor weights.
func DefaultWeights() Weights {
	return Weights{
		FactorSanctions:        0.35,
		FactorPEP:              0.20,
		FactorWatchlist:        0.15,
		FactorAdverseMedia:     0.10,
		FactorFraudCheck:       0.25,
		FactorLivenessCheck:    0.10,
		FactorFaceMatch:        0.10,
		FactorTMAlerts:         0.20,
		FactorTMRuleHits:       0.15,
		FactorHighRiskCorridor: 0.25,
	}
}

// Thresholds are the lower bounds of MEDIUM and HIGH.
type Thresholds struct {
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// DefaultThresholds returns 0.3 / 0.7.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.3, High: 0.7}
}

// Config configures scoring. Weights override the defaults per factor.
type Config struct {
	Weights    Weights
	Thresholds Thresholds

	// ScoreMultiplier scales the normalized score (capped at 1) when > 0.
	ScoreMultiplier float64

	// ScoreFloor is the minimum final score when > 0.
	ScoreFloor float64
}

// DefaultConfig returns default weights and thresholds.
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), Thresholds: DefaultThresholds()}
}

// Validate checks thresholds and weights.
func (c Config) Validate() error {
	if c.Thresholds.Medium < 0 || c.Thresholds.High > 1 || c.Thresholds.Medium > c.Thresholds.High {
		return fmt.Errorf("invalid thresholds: medium=%v high=%v", c.Thresholds.Medium, c.Thresholds.High)
	}
	for f, w := range c.Weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("invalid weight for %s: %v", f, w)
		}
	}
	return nil
}

// Indicators are the observed risk signals for one subject.
type Indicators struct {
	SanctionsHit        bool
	PEPHit              bool
	WatchlistHit        bool
	AdverseMediaHit     bool
	FraudCheckFailed    bool
	LivenessCheckFailed bool
	FaceMatchFailed     bool

	TMAlertCount   int
	TMRuleHitCount int

	// TMCriticalHits and TMHighHits count rule hits by severity.
	TMCriticalHits int
	TMHighHits     int

	HighRiskCorridor bool
}

// FactorResult is the contribution of one factor.
type FactorResult struct {
	Factor       Factor  `json:"factor"`
	Hit          bool    `json:"hit"`
	Weight       float64 `json:"weight"`
	Scale        float64 `json:"scale"`
	Contribution float64 `json:"contribution"`
}

// Assessment is a scored and classified risk evaluation with its breakdown.
type Assessment struct {
	RawScore        float64        `json:"rawScore"`
	TotalWeight     float64        `json:"totalWeight"`
	NormalizedScore float64        `json:"normalizedScore"`
	FinalScore      float64        `json:"finalScore"`
	Level           Level          `json:"level"`
	Thresholds      Thresholds     `json:"thresholds"`
	Factors         []FactorResult `json:"factors"`
	HitCount        int            `json:"hitCount"`
	TotalFactors    int            `json:"totalFactors"`
}

// Score evaluates indicators under config.
func Score(ind Indicators, config Config) *Assessment {
	weights := DefaultWeights()
	for f, w := range config.Weights {
		weights[f] = w
	}
	thresholds := config.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}

	a := &Assessment{Thresholds: thresholds, Factors: []FactorResult{}}

	for _, f := range Factors {
		w := weights[f]
		if w <= 0 {
			continue
		}
		hit, scale := indicator(f, ind)
		contribution := 0.0
		if hit {
			contribution = w * scale
			a.HitCount++
		}
		a.RawScore += contribution
		a.TotalWeight += w
		a.Factors = append(a.Factors, FactorResult{
			Factor:       f,
			Hit:          hit,
			Weight:       w,
			Scale:        scale,
			Contribution: contribution,
		})
	}
	a.TotalFactors = len(a.Factors)

	if a.TotalWeight > 0 {
		a.NormalizedScore = math.Min(a.RawScore/a.TotalWeight, 1)
	}

	final := a.NormalizedScore
	if config.ScoreMultiplier > 0 {
		final = math.Min(final*config.ScoreMultiplier, 1)
	}
	if config.ScoreFloor > 0 && final < config.ScoreFloor {
		final = config.ScoreFloor
	}
	a.FinalScore = final
	a.Level = Classify(final, thresholds)
	return a
}

// Classify maps a score to a level. Bounds are inclusive from above.
func Classify(score float64, t Thresholds) Level {
	switch {
	case score >= t.High:
		return LevelHigh
	case score >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// indicator returns whether f fired and its scale in [0,1].
func indicator(f Factor, ind Indicators) (bool, float64) {
	switch f {
	case FactorSanctions:
		return ind.SanctionsHit, 1
	case FactorPEP:
		return ind.PEPHit, 1
	case FactorWatchlist:
		return ind.WatchlistHit, 1
	case FactorAdverseMedia:
		return ind.AdverseMediaHit, 1
	case FactorFraudCheck:
		return ind.FraudCheckFailed, 1
	case FactorLivenessCheck:
		return ind.LivenessCheckFailed, 1
	case FactorFaceMatch:
		return ind.FaceMatchFailed, 1
	case FactorTMAlerts:
		return ind.TMAlertCount > 0, math.Min(float64(ind.TMAlertCount)/3, 1)
	case FactorTMRuleHits:
		switch {
		case ind.TMCriticalHits > 0:
			return ind.TMRuleHitCount > 0, 1
		case ind.TMHighHits > 0:
			return ind.TMRuleHitCount > 0, 0.8
		default:
			return ind.TMRuleHitCount > 0, 0.5
		}
	case FactorHighRiskCorridor:
		return ind.HighRiskCorridor, 1
	default:
		return false, 0
	}
}
