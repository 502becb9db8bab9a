package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultMaxSteps    = 50
	DefaultTenantID    = "default"
	DefaultConcurrency = 4

	// Workflow source defaults
	DefaultWorkflowsPath    = "./workflows"
	DefaultWorkflowDebounce = 200 * time.Millisecond

	// Screening defaults
	DefaultScreeningDataset = "default"
	DefaultScreeningTimeout = 10 * time.Second
	DefaultMatchThreshold   = 80.0

	// Risk defaults
	DefaultMediumThreshold = 0.3
	DefaultHighThreshold   = 0.7

	// Monitoring store defaults
	DefaultMonitoringBackend    = "memory"
	DefaultMonitoringSQLitePath = "data/monitoring.db"
	DefaultPurgeSchedule        = "*/15 * * * *"

	// Notify defaults
	DefaultNotifyTimeout        = 10 * time.Second
	DefaultNotifyMaxRetries     = 3
	DefaultNotifyInitialBackoff = 200 * time.Millisecond
	DefaultNotifyMaxBackoff     = 5 * time.Second
	DefaultNotifyRateLimit      = 10.0
	DefaultNotifyBurst          = 20

	// Audit defaults
	DefaultAuditBackend           = "sqlite"
	DefaultAuditSQLitePath        = "data/audit.db"
	DefaultAuditMaxOpenConns      = 10
	DefaultAuditMaxIdleConns      = 5
	DefaultAuditBusyTimeout       = 5 * time.Second
	DefaultAuditRetentionDays     = 365
	DefaultAuditRetentionSchedule = "0 3 * * *"

	// Persistence defaults
	DefaultPersistenceBackend = "memory"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "KYCAML_SECRET_"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsNamespace     = "kycaml"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingServiceName   = "kycaml"
)

// NewDefault returns a configuration with every default applied and metrics
// enabled. It is used when no configuration file is given.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.MaxSteps == 0 {
		cfg.Engine.MaxSteps = DefaultMaxSteps
	}
	if cfg.Engine.TenantID == "" {
		cfg.Engine.TenantID = DefaultTenantID
	}
	if cfg.Engine.Concurrency == 0 {
		cfg.Engine.Concurrency = DefaultConcurrency
	}

	// Workflow source defaults
	if cfg.Workflows.Path == "" {
		cfg.Workflows.Path = DefaultWorkflowsPath
	}
	if cfg.Workflows.Debounce == 0 {
		cfg.Workflows.Debounce = DefaultWorkflowDebounce
	}

	// Screening defaults
	if cfg.Screening.Dataset == "" {
		cfg.Screening.Dataset = DefaultScreeningDataset
	}
	if cfg.Screening.Timeout == 0 {
		cfg.Screening.Timeout = DefaultScreeningTimeout
	}
	if cfg.Screening.MatchThreshold == 0 {
		cfg.Screening.MatchThreshold = DefaultMatchThreshold
	}

	// Risk defaults
	if cfg.Risk.MediumThreshold == 0 && cfg.Risk.HighThreshold == 0 {
		cfg.Risk.MediumThreshold = DefaultMediumThreshold
		cfg.Risk.HighThreshold = DefaultHighThreshold
	}

	// Monitoring store defaults
	if cfg.Monitoring.Backend == "" {
		cfg.Monitoring.Backend = DefaultMonitoringBackend
	}
	if cfg.Monitoring.SQLitePath == "" {
		cfg.Monitoring.SQLitePath = DefaultMonitoringSQLitePath
	}
	if cfg.Monitoring.PurgeSchedule == "" {
		cfg.Monitoring.PurgeSchedule = DefaultPurgeSchedule
	}

	// Notify defaults
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
	if cfg.Notify.MaxRetries == 0 {
		cfg.Notify.MaxRetries = DefaultNotifyMaxRetries
	}
	if cfg.Notify.InitialBackoff == 0 {
		cfg.Notify.InitialBackoff = DefaultNotifyInitialBackoff
	}
	if cfg.Notify.MaxBackoff == 0 {
		cfg.Notify.MaxBackoff = DefaultNotifyMaxBackoff
	}
	if cfg.Notify.RateLimit == 0 {
		cfg.Notify.RateLimit = DefaultNotifyRateLimit
	}
	if cfg.Notify.Burst == 0 {
		cfg.Notify.Burst = DefaultNotifyBurst
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditBusyTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	// Persistence defaults
	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = DefaultPersistenceBackend
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}
