package risk

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestScore_NoIndicators(t *testing.T) {
	a := Score(Indicators{}, DefaultConfig())
	if a.FinalScore != 0 || a.Level != LevelLow {
		t.Errorf("Expected 0 LOW, got %v %s", a.FinalScore, a.Level)
	}
	if a.TotalFactors != len(Factors) {
		t.Errorf("Expected %d factors, got %d", len(Factors), a.TotalFactors)
	}
	if math.Abs(a.TotalWeight-1.85) > epsilon {
		t.Errorf("Expected total weight 1.85, got %v", a.TotalWeight)
	}
}

func TestScore_Sanctions(t *testing.T) {
	a := Score(Indicators{SanctionsHit: true}, DefaultConfig())
	want := 0.35 / 1.85
	if math.Abs(a.FinalScore-want) > epsilon {
		t.Errorf("Expected %v, got %v", want, a.FinalScore)
	}
	if a.HitCount != 1 {
		t.Errorf("Expected 1 hit, got %d", a.HitCount)
	}
}

func TestScore_CustomWeightsAndZeroWeightSkipped(t *testing.T) {
	config := Config{Weights: Weights{}}
	for _, f := range Factors {
		config.Weights[f] = 0
	}
	config.Weights[FactorSanctions] = 0.8
	config.Weights[FactorPEP] = 0.2

	a := Score(Indicators{SanctionsHit: true, WatchlistHit: true}, config)
	if a.TotalFactors != 2 {
		t.Errorf("Expected zero-weight factors skipped, got %d factors", a.TotalFactors)
	}
	if math.Abs(a.FinalScore-0.8) > epsilon || a.Level != LevelHigh {
		t.Errorf("Expected 0.8 HIGH, got %v %s", a.FinalScore, a.Level)
	}
}

func TestScore_TMScaling(t *testing.T) {
	only := func(f Factor) Config {
		c := Config{Weights: Weights{}}
		for _, g := range Factors {
			c.Weights[g] = 0
		}
		c.Weights[f] = 1
		return c
	}

	tests := []struct {
		name   string
		factor Factor
		ind    Indicators
		want   float64
	}{
		{"one alert", FactorTMAlerts, Indicators{TMAlertCount: 1}, 1.0 / 3},
		{"three alerts cap", FactorTMAlerts, Indicators{TMAlertCount: 5}, 1},
		{"critical hit", FactorTMRuleHits, Indicators{TMRuleHitCount: 2, TMCriticalHits: 1, TMHighHits: 1}, 1},
		{"high hit", FactorTMRuleHits, Indicators{TMRuleHitCount: 1, TMHighHits: 1}, 0.8},
		{"medium hit", FactorTMRuleHits, Indicators{TMRuleHitCount: 1}, 0.5},
		{"no hits", FactorTMRuleHits, Indicators{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Score(tt.ind, only(tt.factor))
			if math.Abs(a.FinalScore-tt.want) > epsilon {
				t.Errorf("Expected %v, got %v", tt.want, a.FinalScore)
			}
		})
	}
}

func TestScore_MultiplierAndFloor(t *testing.T) {
	config := DefaultConfig()
	config.ScoreMultiplier = 10
	a := Score(Indicators{PEPHit: true}, config)
	if a.FinalScore != 1 {
		t.Errorf("Expected multiplier capped at 1, got %v", a.FinalScore)
	}

	config = DefaultConfig()
	config.ScoreFloor = 0.4
	a = Score(Indicators{}, config)
	if a.FinalScore != 0.4 || a.Level != LevelMedium {
		t.Errorf("Expected floor 0.4 MEDIUM, got %v %s", a.FinalScore, a.Level)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{0.2999, LevelLow},
		{0.3, LevelMedium},
		{0.6999, LevelMedium},
		{0.7, LevelHigh},
		{1, LevelHigh},
	}
	for _, tt := range tests {
		if got := Classify(tt.score, th); got != tt.want {
			t.Errorf("Classify(%v): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

// Flipping any single boolean factor from false to true never lowers the score.
func TestScore_Monotonic(t *testing.T) {
	flips := []func(*Indicators){
		func(i *Indicators) { i.SanctionsHit = true },
		func(i *Indicators) { i.PEPHit = true },
		func(i *Indicators) { i.WatchlistHit = true },
		func(i *Indicators) { i.AdverseMediaHit = true },
		func(i *Indicators) { i.FraudCheckFailed = true },
		func(i *Indicators) { i.LivenessCheckFailed = true },
		func(i *Indicators) { i.FaceMatchFailed = true },
		func(i *Indicators) { i.HighRiskCorridor = true },
		func(i *Indicators) { i.TMAlertCount++ },
		func(i *Indicators) { i.TMRuleHitCount++ },
	}

	// Enumerate every base combination of the eight boolean factors.
	for mask := 0; mask < 1<<8; mask++ {
		var base Indicators
		for bit := 0; bit < 8; bit++ {
			if mask&(1<<bit) != 0 {
				flips[bit](&base)
			}
		}
		before := Score(base, DefaultConfig()).FinalScore

		for i, flip := range flips {
			after := base
			flip(&after)
			if got := Score(after, DefaultConfig()).FinalScore; got < before-epsilon {
				t.Fatalf("flip %d on mask %b lowered score: %v -> %v", i, mask, before, got)
			}
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config valid, got %v", err)
	}
	bad := DefaultConfig()
	bad.Thresholds = Thresholds{Medium: 0.8, High: 0.5}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for inverted thresholds")
	}
	bad = DefaultConfig()
	bad.Weights[FactorPEP] = -1
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for negative weight")
	}
}
