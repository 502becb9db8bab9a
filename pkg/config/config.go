package config

import "time"

// Config is the root configuration of the compliance engine.
type Config struct {
	// Engine configures the interpreter and the default tenant.
	Engine EngineConfig `yaml:"engine"`

	// Workflows configures the file-backed workflow source.
	Workflows WorkflowsConfig `yaml:"workflows"`

	// Screening configures the external watchlist provider used by the AML
	// screening nodes.
	Screening ScreeningConfig `yaml:"screening"`

	// Risk configures the default scoring weights and thresholds. Node
	// config may override them per calculator.
	Risk RiskConfig `yaml:"risk"`

	// Monitoring configures the keyed store shared by the deduplication and
	// alert grouping stages.
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Notify configures outbound webhooks for alerts and callbacks.
	Notify NotifyConfig `yaml:"notify"`

	// Audit configures the execution audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Persistence configures workflow and execution records.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Secrets configures resolution of ${secret:name} references in the
	// screening API key, persistence DSN and Redis password.
	Secrets SecretsConfig `yaml:"secrets"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig configures workflow execution.
type EngineConfig struct {
	// MaxSteps caps the nodes a single run may visit.
	// Default: 50
	MaxSteps int `yaml:"max_steps"`

	// TenantID is assigned to workflows loaded from files and CLI runs.
	// Default: "default"
	TenantID string `yaml:"tenant_id"`

	// Concurrency bounds how many inputs the CLI runs at once.
	// Default: 4
	Concurrency int `yaml:"concurrency"`
}

// WorkflowsConfig configures where workflow graphs are read from.
type WorkflowsConfig struct {
	// Path is a graph file or a directory of graph files.
	// Default: "./workflows"
	Path string `yaml:"path"`

	// Watch redeploys workflows when files under Path change.
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file change before redeploying.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`
}

// ScreeningConfig configures the watchlist provider.
type ScreeningConfig struct {
	// BaseURL is the provider endpoint. Empty selects the built-in
	// demonstration list only.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates to the provider.
	APIKey string `yaml:"api_key"`

	// Dataset is the provider collection to match against.
	// Default: "default"
	Dataset string `yaml:"dataset"`

	// Timeout bounds each provider call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MatchThreshold is the minimum similarity (0-100) reported as a hit.
	// Default: 80
	MatchThreshold float64 `yaml:"match_threshold"`

	// EnableDemoFallback screens against the demonstration list when the
	// provider fails. Default: true
	EnableDemoFallback *bool `yaml:"enable_demo_fallback"`
}

// DemoFallback reports whether demonstration fallback is enabled.
func (c ScreeningConfig) DemoFallback() bool {
	return c.EnableDemoFallback == nil || *c.EnableDemoFallback
}

// RiskConfig configures default risk scoring.
type RiskConfig struct {
	// Weights override default factor weights by factor name.
	Weights map[string]float64 `yaml:"weights"`

	// MediumThreshold is the inclusive lower bound of MEDIUM.
	// Default: 0.3
	MediumThreshold float64 `yaml:"medium_threshold"`

	// HighThreshold is the inclusive lower bound of HIGH.
	// Default: 0.7
	HighThreshold float64 `yaml:"high_threshold"`

	// ScoreMultiplier scales the final score before clamping. Zero means 1.
	ScoreMultiplier float64 `yaml:"score_multiplier"`

	// ScoreFloor is the minimum final score.
	ScoreFloor float64 `yaml:"score_floor"`
}

// MonitoringConfig configures the dedup and alert-group store.
type MonitoringConfig struct {
	// Backend is "memory", "sqlite" or "redis".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file of the sqlite backend.
	// Default: "data/monitoring.db"
	SQLitePath string `yaml:"sqlite_path"`

	// RedisAddr is host:port of the redis backend.
	RedisAddr string `yaml:"redis_addr"`

	// RedisPassword authenticates to Redis.
	RedisPassword string `yaml:"redis_password"`

	// RedisDB selects the Redis logical database.
	RedisDB int `yaml:"redis_db"`

	// PurgeSchedule is a cron expression for removing expired entries.
	// Default: "*/15 * * * *"
	PurgeSchedule string `yaml:"purge_schedule"`
}

// NotifyConfig configures the webhook notifier.
type NotifyConfig struct {
	// Timeout bounds each delivery attempt.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff is the delay before the first retry.
	// Default: 200ms
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the retry delay.
	// Default: 5s
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// RateLimit is the sustained deliveries per second.
	// Default: 10
	RateLimit float64 `yaml:"rate_limit"`

	// Burst is the rate limiter bucket size.
	// Default: 20
	Burst int `yaml:"burst"`
}

// AuditConfig configures audit event storage.
type AuditConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Retention configures pruning of old events.
	Retention RetentionConfig `yaml:"retention"`
}

// AuditSQLiteConfig configures the sqlite audit store.
type AuditSQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns caps open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns caps idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// BusyTimeout is how long a writer waits for a lock.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures audit pruning.
type RetentionConfig struct {
	// Days keeps events newer than this many days. Zero keeps everything.
	// Default: 365
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// MaxEvents caps the total number of stored events. Zero is unlimited.
	MaxEvents int64 `yaml:"max_events"`
}

// PersistenceConfig configures workflow and execution records.
type PersistenceConfig struct {
	// Backend is "memory" or "postgres".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// DSN is the Postgres connection string.
	DSN string `yaml:"dsn"`
}

// SecretsConfig configures secret providers. The file provider, when a
// directory is set, takes priority over the environment.
type SecretsConfig struct {
	// EnvPrefix namespaces secret environment variables.
	// Default: "KYCAML_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret (mounted secrets). Empty disables the
	// file provider.
	Dir string `yaml:"dir"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks personal data such as names, dates of birth and
	// document numbers in log attributes.
	// Default: true
	RedactPII *bool `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is enabled.
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled registers the collector and serves it in serve mode.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: "kycaml"
	Namespace string `yaml:"namespace"`

	// ListenAddress is where serve mode exposes metrics and health.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled exports spans. Disabled uses a noop tracer.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP/gRPC collector address.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of runs traced.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the resource service name.
	// Default: "kycaml"
	ServiceName string `yaml:"service_name"`
}
