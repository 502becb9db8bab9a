package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{"no checks", nil, StatusReady},
		{
			"all healthy",
			map[string]CheckFunc{
				"audit":       func(ctx context.Context) error { return nil },
				"persistence": func(ctx context.Context) error { return nil },
			},
			StatusReady,
		},
		{
			"one failing",
			map[string]CheckFunc{
				"audit":      func(ctx context.Context) error { return nil },
				"monitoring": func(ctx context.Context) error { return errors.New("redis unreachable") },
			},
			StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Readiness(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Expected %s, got %s", tt.wantStatus, report.Status)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("Expected %d results, got %d", len(tt.checks), len(report.Checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	report := c.Readiness(context.Background())
	if report.Checks["slow"].Status != StatusUnhealthy {
		t.Errorf("Expected slow check to time out, got %+v", report.Checks["slow"])
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.Register("workflows", func(ctx context.Context) error { return errors.New("2 workflows failed to deploy") })

	mux := http.NewServeMux()
	Mount(mux, c, VersionInfo{Version: "1.2.3"}, 0)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.code {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.code, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("Unexpected version info %+v", info)
	}
}

func TestRateLimited(t *testing.T) {
	h := RateLimited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), 1)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}
