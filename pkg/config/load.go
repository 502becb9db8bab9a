package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KYCAML_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result. Environment variables
// are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides named KYCAML_SECTION_FIELD (e.g. KYCAML_ENGINE_MAX_STEPS).
// Environment variables take precedence over the file. An empty path starts
// from NewDefault instead of a file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies KYCAML_* environment variables. Values that fail
// to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envInt("ENGINE_MAX_STEPS", &cfg.Engine.MaxSteps)
	envString("ENGINE_TENANT_ID", &cfg.Engine.TenantID)
	envInt("ENGINE_CONCURRENCY", &cfg.Engine.Concurrency)

	// Workflow source overrides
	envString("WORKFLOWS_PATH", &cfg.Workflows.Path)
	envBool("WORKFLOWS_WATCH", &cfg.Workflows.Watch)
	envDuration("WORKFLOWS_DEBOUNCE", &cfg.Workflows.Debounce)

	// Screening overrides
	envString("SCREENING_BASE_URL", &cfg.Screening.BaseURL)
	envString("SCREENING_API_KEY", &cfg.Screening.APIKey)
	envString("SCREENING_DATASET", &cfg.Screening.Dataset)
	envDuration("SCREENING_TIMEOUT", &cfg.Screening.Timeout)
	envFloat("SCREENING_MATCH_THRESHOLD", &cfg.Screening.MatchThreshold)
	if val := os.Getenv(EnvPrefix + "SCREENING_ENABLE_DEMO_FALLBACK"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Screening.EnableDemoFallback = &b
		}
	}

	// Risk overrides
	envFloat("RISK_MEDIUM_THRESHOLD", &cfg.Risk.MediumThreshold)
	envFloat("RISK_HIGH_THRESHOLD", &cfg.Risk.HighThreshold)
	envFloat("RISK_SCORE_MULTIPLIER", &cfg.Risk.ScoreMultiplier)
	envFloat("RISK_SCORE_FLOOR", &cfg.Risk.ScoreFloor)

	// Monitoring store overrides
	envString("MONITORING_BACKEND", &cfg.Monitoring.Backend)
	envString("MONITORING_SQLITE_PATH", &cfg.Monitoring.SQLitePath)
	envString("MONITORING_REDIS_ADDR", &cfg.Monitoring.RedisAddr)
	envString("MONITORING_REDIS_PASSWORD", &cfg.Monitoring.RedisPassword)
	envInt("MONITORING_REDIS_DB", &cfg.Monitoring.RedisDB)
	envString("MONITORING_PURGE_SCHEDULE", &cfg.Monitoring.PurgeSchedule)

	// Notify overrides
	envDuration("NOTIFY_TIMEOUT", &cfg.Notify.Timeout)
	envInt("NOTIFY_MAX_RETRIES", &cfg.Notify.MaxRetries)
	envDuration("NOTIFY_INITIAL_BACKOFF", &cfg.Notify.InitialBackoff)
	envDuration("NOTIFY_MAX_BACKOFF", &cfg.Notify.MaxBackoff)
	envFloat("NOTIFY_RATE_LIMIT", &cfg.Notify.RateLimit)
	envInt("NOTIFY_BURST", &cfg.Notify.Burst)

	// Audit overrides
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envInt("AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)

	// Persistence overrides
	envString("PERSISTENCE_BACKEND", &cfg.Persistence.Backend)
	envString("PERSISTENCE_DSN", &cfg.Persistence.DSN)

	// Secrets overrides
	envString("SECRETS_DIR", &cfg.Secrets.Dir)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
