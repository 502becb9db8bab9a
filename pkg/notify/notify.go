// Package notify delivers JSON webhook notifications (alert notifications and
// execution callbacks) with bounded retries, exponential backoff and a
// client-side rate limit.
//
// Delivery failures are returned as *DeliveryError. Callers in the workflow
// treat them as degraded, never fatal.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config contains webhook delivery settings.
type Config struct {
	// Timeout bounds a single HTTP attempt. Default: 5s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 2.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 200ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries. Default: 5s.
	MaxBackoff time.Duration

	// BackoffCoefficient multiplies the wait after each retry. Default: 2.
	BackoffCoefficient float64

	// RateLimit is the sustained deliveries per second. 0 disables limiting.
	RateLimit float64

	// Burst is the limiter burst size. Default: 1.
	Burst int

	// Headers are added to every request.
	Headers map[string]string
}

// DefaultConfig returns the default delivery configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:            5 * time.Second,
		MaxRetries:         2,
		InitialBackoff:     200 * time.Millisecond,
		MaxBackoff:         5 * time.Second,
		BackoffCoefficient: 2,
		RateLimit:          10,
		Burst:              5,
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.BackoffCoefficient < 1 {
		c.BackoffCoefficient = d.BackoffCoefficient
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// Delivery describes a successful notification.
type Delivery struct {
	URL        string
	StatusCode int
	Attempts   int
	Duration   time.Duration
}

// Notifier posts JSON payloads to webhook URLs.
type Notifier struct {
	client  *http.Client
	config  *Config
	limiter *rate.Limiter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a notifier. A nil config selects DefaultConfig.
func New(config *Config) *Notifier {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()

	n := &Notifier{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		logger: slog.Default().With("component", "notify"),
		sleep:  sleepContext,
	}
	if config.RateLimit > 0 {
		n.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}
	return n
}

// Post delivers payload as JSON to url. Network errors, 429 and 5xx
// responses are retried; other 4xx responses fail immediately.
func (n *Notifier) Post(ctx context.Context, url string, payload any) (*Delivery, error) {
	start := time.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &DeliveryError{URL: url, Cause: fmt.Errorf("encode payload: %w", err)}
	}

	var lastErr error
	lastStatus := 0
	attempts := 0

	for attempt := 0; attempt <= n.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := n.sleep(ctx, Backoff(n.config, attempt)); err != nil {
				lastErr = err
				break
			}
		}
		if n.limiter != nil {
			if err := n.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		status, err := n.send(ctx, url, body)
		lastStatus = status
		if err == nil {
			n.logger.Debug("webhook delivered", "url", url, "status", status, "attempts", attempts)
			return &Delivery{URL: url, StatusCode: status, Attempts: attempts, Duration: time.Since(start)}, nil
		}
		lastErr = err

		if !retryable(status) {
			break
		}
		n.logger.Warn("webhook delivery attempt failed", "url", url, "attempt", attempts, "status", status, "error", err)
	}

	return nil, &DeliveryError{URL: url, Attempts: attempts, StatusCode: lastStatus, Cause: lastErr}
}

func (n *Notifier) send(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "kycaml-notify/1.0")
	for k, v := range n.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// retryable reports whether a failed attempt with the given status should be
// retried. Status 0 means a transport error.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
