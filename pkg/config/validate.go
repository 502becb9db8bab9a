package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/risk"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "audit.sqlite.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are collected
// and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateWorkflows(&cfg.Workflows)...)
	errs = append(errs, validateScreening(&cfg.Screening)...)
	errs = append(errs, validateRisk(&cfg.Risk)...)
	errs = append(errs, validateMonitoring(&cfg.Monitoring)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validatePersistence(&cfg.Persistence)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	if cfg.Dir == "" {
		return nil
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil || !info.IsDir() {
		return []FieldError{{Field: "secrets.dir", Message: fmt.Sprintf("secrets directory %q does not exist", cfg.Dir)}}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxSteps <= 0 {
		errs = append(errs, FieldError{Field: "engine.max_steps", Message: "max steps must be positive"})
	}
	if cfg.TenantID == "" {
		errs = append(errs, FieldError{Field: "engine.tenant_id", Message: "tenant id is required"})
	}
	if cfg.Concurrency <= 0 {
		errs = append(errs, FieldError{Field: "engine.concurrency", Message: "concurrency must be positive"})
	}
	return errs
}

func validateWorkflows(cfg *WorkflowsConfig) []FieldError {
	var errs []FieldError
	if cfg.Watch && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "workflows.path", Message: "path is required when watch is enabled"})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "workflows.debounce", Message: "debounce must be non-negative"})
	}
	return errs
}

func validateScreening(cfg *ScreeningConfig) []FieldError {
	var errs []FieldError
	if cfg.BaseURL != "" {
		if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "screening.base_url",
				Message: fmt.Sprintf("invalid URL %q", cfg.BaseURL),
			})
		}
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "screening.timeout", Message: "timeout must be non-negative"})
	}
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 100 {
		errs = append(errs, FieldError{
			Field:   "screening.match_threshold",
			Message: "match threshold must be between 0 and 100",
		})
	}
	return errs
}

func validateRisk(cfg *RiskConfig) []FieldError {
	var errs []FieldError

	known := make(map[string]bool, len(risk.Factors))
	for _, f := range risk.Factors {
		known[string(f)] = true
	}
	for name, w := range cfg.Weights {
		if !known[name] {
			errs = append(errs, FieldError{
				Field:   "risk.weights." + name,
				Message: "unknown risk factor",
			})
			continue
		}
		if w < 0 {
			errs = append(errs, FieldError{Field: "risk.weights." + name, Message: "weight must be non-negative"})
		}
	}

	if cfg.MediumThreshold < 0 || cfg.HighThreshold > 1 || cfg.MediumThreshold > cfg.HighThreshold {
		errs = append(errs, FieldError{
			Field:   "risk.medium_threshold",
			Message: fmt.Sprintf("thresholds must satisfy 0 <= medium <= high <= 1 (medium=%v high=%v)", cfg.MediumThreshold, cfg.HighThreshold),
		})
	}
	if cfg.ScoreMultiplier < 0 {
		errs = append(errs, FieldError{Field: "risk.score_multiplier", Message: "multiplier must be non-negative"})
	}
	if cfg.ScoreFloor < 0 || cfg.ScoreFloor > 1 {
		errs = append(errs, FieldError{Field: "risk.score_floor", Message: "floor must be between 0 and 1"})
	}
	return errs
}

func validateMonitoring(cfg *MonitoringConfig) []FieldError {
	var errs []FieldError
	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{Field: "monitoring.sqlite_path", Message: "path is required for the sqlite backend"})
		}
	case "redis":
		if cfg.RedisAddr == "" {
			errs = append(errs, FieldError{Field: "monitoring.redis_addr", Message: "address is required for the redis backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "monitoring.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'redis'", cfg.Backend),
		})
	}
	if cfg.RedisDB < 0 {
		errs = append(errs, FieldError{Field: "monitoring.redis_db", Message: "redis db must be non-negative"})
	}
	errs = append(errs, validateSchedule("monitoring.purge_schedule", cfg.PurgeSchedule)...)
	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "notify.timeout", Message: "timeout must be positive"})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "notify.max_retries", Message: "max retries must be non-negative"})
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		errs = append(errs, FieldError{Field: "notify.max_backoff", Message: "max backoff must not be less than initial backoff"})
	}
	if cfg.RateLimit <= 0 {
		errs = append(errs, FieldError{Field: "notify.rate_limit", Message: "rate limit must be positive"})
	}
	if cfg.Burst <= 0 {
		errs = append(errs, FieldError{Field: "notify.burst", Message: "burst must be positive"})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError
	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_open_conns", Message: "max open connections must be at least 1"})
		}
		if cfg.SQLite.MaxIdleConns < 0 || cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.max_idle_conns",
				Message: "max idle connections must be between 0 and max open connections",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.MaxEvents < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.max_events", Message: "max events must be non-negative"})
	}
	errs = append(errs, validateSchedule("audit.retention.schedule", cfg.Retention.Schedule)...)
	return errs
}

func validatePersistence(cfg *PersistenceConfig) []FieldError {
	var errs []FieldError
	switch cfg.Backend {
	case "memory":
	case "postgres":
		if cfg.DSN == "" {
			errs = append(errs, FieldError{Field: "persistence.dsn", Message: "dsn is required for the postgres backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "persistence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'postgres'", cfg.Backend),
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	return errs
}

func validateSchedule(field, schedule string) []FieldError {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid cron expression %q: %v", schedule, err)}}
	}
	return nil
}
