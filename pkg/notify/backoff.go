package notify

import (
	"math"
	"math/rand"
	"time"
)

// Backoff returns the wait before retry number attempt (1-based), with
// +/-20% jitter, capped at MaxBackoff.
func Backoff(config *Config, attempt int) time.Duration {
	if attempt <= 0 {
		return config.InitialBackoff
	}

	multiplier := math.Pow(config.BackoffCoefficient, float64(attempt-1))
	backoff := float64(config.InitialBackoff) * multiplier
	backoff *= 0.8 + rand.Float64()*0.4

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}
