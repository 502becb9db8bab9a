package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testNotifier(maxRetries int) *Notifier {
	n := New(&Config{
		Timeout:        time.Second,
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	})
	n.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return n
}

func TestNotifier_PostSuccess(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %s", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	delivery, err := testNotifier(2).Post(context.Background(), server.URL, map[string]any{"alertId": "A-1"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if delivery.StatusCode != http.StatusAccepted || delivery.Attempts != 1 {
		t.Errorf("Expected 202 in 1 attempt, got %d in %d", delivery.StatusCode, delivery.Attempts)
	}
	if received["alertId"] != "A-1" {
		t.Errorf("Expected payload delivered, got %v", received)
	}
}

func TestNotifier_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	delivery, err := testNotifier(2).Post(context.Background(), server.URL, map[string]any{})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if delivery.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", delivery.Attempts)
	}
}

func TestNotifier_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := testNotifier(3).Post(context.Background(), server.URL, map[string]any{})

	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("Expected DeliveryError, got %v", err)
	}
	if delivery.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", delivery.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestNotifier_UnreachableExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := testNotifier(1).Post(context.Background(), url, map[string]any{})

	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("Expected DeliveryError, got %v", err)
	}
	if delivery.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", delivery.Attempts)
	}
}

func TestBackoff(t *testing.T) {
	config := &Config{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffCoefficient: 2}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 100 * time.Millisecond, 100 * time.Millisecond},
		{1, 80 * time.Millisecond, 120 * time.Millisecond},
		{2, 160 * time.Millisecond, 240 * time.Millisecond},
		{10, time.Second, time.Second},
	}

	for _, tt := range tests {
		got := Backoff(config, tt.attempt)
		if got < tt.min || got > tt.max {
			t.Errorf("attempt %d: expected backoff in [%v, %v], got %v", tt.attempt, tt.min, tt.max, got)
		}
	}
}
