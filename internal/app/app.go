// Package app assembles the engine and its collaborators from a loaded
// configuration. Every kycaml command builds one App and closes it on exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit/retention"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit/storage"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/config"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/engine"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/identity"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/nodes"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/notify"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/risk"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/screening"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/secrets"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/telemetry/metrics"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/telemetry/tracing"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Backend names for persistence.
const (
	PersistenceMemory   = "memory"
	PersistencePostgres = "postgres"
)

// App holds the wired engine and the resources it owns.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Engine     *engine.Engine
	Repository persistence.Repository
	Audit      audit.Store
	Monitoring store.Store
	Notifier   *notify.Notifier
	Screener   *screening.Screener

	// Metrics is nil when metrics are disabled.
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	closers []func(context.Context) error
}

// Options customize Build.
type Options struct {
	Logger *slog.Logger

	// Identity replaces the mock identity provider.
	Identity identity.Provider

	// ScreeningProvider replaces the provider derived from configuration.
	ScreeningProvider screening.Provider
}

// Build wires every component described by cfg. On error, resources
// opened so far are released.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := ResolveSecrets(ctx, cfg); err != nil {
		return nil, fmt.Errorf("resolve secrets: %w", err)
	}

	if a.Tracer, err = tracing.New(&cfg.Telemetry.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(a.Tracer.Shutdown)

	var observer runtime.Observer
	if cfg.Telemetry.Metrics.Enabled {
		a.Metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		observer = a.Metrics
	}

	if a.Repository, err = openRepository(ctx, cfg.Persistence, logger); err != nil {
		return nil, err
	}
	a.onClose(closeFunc(a.Repository.Close))

	if a.Audit, err = OpenAuditStore(cfg.Audit); err != nil {
		return nil, err
	}
	a.onClose(closeFunc(a.Audit.Close))

	if a.Monitoring, err = store.Open(MonitoringStoreConfig(cfg.Monitoring)); err != nil {
		return nil, fmt.Errorf("open monitoring store: %w", err)
	}
	a.onClose(closeFunc(a.Monitoring.Close))

	a.Notifier = notify.New(NotifyConfig(cfg.Notify))

	provider := opts.ScreeningProvider
	if provider == nil && cfg.Screening.APIKey != "" {
		provider = screening.NewHTTPProvider(ScreeningHTTPConfig(cfg.Screening))
	}
	a.Screener = screening.NewScreener(provider, screening.Config{
		MatchThreshold:  cfg.Screening.MatchThreshold,
		DisableFallback: !cfg.Screening.DemoFallback(),
	})

	pipeline := monitoring.NewPipeline(a.Monitoring, a.Notifier)
	if a.Metrics != nil {
		a.Screener.SetObserver(a.Metrics)
		pipeline.SetObserver(a.Metrics)
	}

	registry, err := nodes.NewRegistry(nodes.Deps{
		Identity:   opts.Identity,
		Screener:   a.Screener,
		Monitoring: pipeline,
		Poster:     a.Notifier,
		Risk:       RiskConfig(cfg.Risk),
	})
	if err != nil {
		return nil, err
	}

	a.Engine = engine.New(a.Repository, a.Audit, registry, engine.Options{
		MaxSteps: cfg.Engine.MaxSteps,
		Logger:   logger,
		Observer: observer,
		Tracer:   a.Tracer.Tracer(),
	})
	return a, nil
}

// ResolveSecrets replaces ${secret:name} references in the credential
// fields of cfg.
func ResolveSecrets(ctx context.Context, cfg *config.Config) error {
	var providers []secrets.Provider
	if cfg.Secrets.Dir != "" {
		providers = append(providers, secrets.NewFileProvider(cfg.Secrets.Dir))
	}
	providers = append(providers, secrets.NewEnvProvider(cfg.Secrets.EnvPrefix))

	return secrets.NewManager(providers...).ResolveAll(ctx, map[string]*string{
		"screening.api_key":         &cfg.Screening.APIKey,
		"persistence.dsn":           &cfg.Persistence.DSN,
		"monitoring.redis_password": &cfg.Monitoring.RedisPassword,
	})
}

// Pruner returns the audit retention pruner for the configured store.
func (a *App) Pruner() *retention.Pruner {
	return retention.NewPruner(a.Audit, RetentionConfig(a.Config.Audit.Retention))
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func closeFunc(fn func() error) func(context.Context) error {
	return func(context.Context) error { return fn() }
}

func openRepository(ctx context.Context, cfg config.PersistenceConfig, logger *slog.Logger) (persistence.Repository, error) {
	switch cfg.Backend {
	case "", PersistenceMemory:
		return persistence.NewMemoryRepository(), nil
	case PersistencePostgres:
		repo, err := persistence.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres repository: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("migrate postgres repository: %w", err)
		}
		logger.Info("persistence ready", "backend", cfg.Backend)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported persistence backend: %s", cfg.Backend)
	}
}

// OpenAuditStore opens the configured audit backend.
func OpenAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "", "sqlite":
		s, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      true,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}

// MonitoringStoreConfig maps the monitoring section to store.Config.
func MonitoringStoreConfig(cfg config.MonitoringConfig) store.Config {
	return store.Config{
		Backend:       cfg.Backend,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		PurgeSchedule: cfg.PurgeSchedule,
	}
}

// NotifyConfig maps the notify section to notify.Config.
func NotifyConfig(cfg config.NotifyConfig) *notify.Config {
	c := notify.DefaultConfig()
	c.Timeout = cfg.Timeout
	c.MaxRetries = cfg.MaxRetries
	c.InitialBackoff = cfg.InitialBackoff
	c.MaxBackoff = cfg.MaxBackoff
	c.RateLimit = cfg.RateLimit
	c.Burst = cfg.Burst
	return c
}

// ScreeningHTTPConfig maps the screening section to the HTTP provider config.
func ScreeningHTTPConfig(cfg config.ScreeningConfig) screening.HTTPConfig {
	return screening.HTTPConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Dataset: cfg.Dataset,
		Timeout: cfg.Timeout,
	}
}

// RiskConfig maps the risk section onto the default scoring configuration.
func RiskConfig(cfg config.RiskConfig) risk.Config {
	c := risk.DefaultConfig()
	for name, w := range cfg.Weights {
		c.Weights[risk.Factor(name)] = w
	}
	if cfg.MediumThreshold > 0 {
		c.Thresholds.Medium = cfg.MediumThreshold
	}
	if cfg.HighThreshold > 0 {
		c.Thresholds.High = cfg.HighThreshold
	}
	c.ScoreMultiplier = cfg.ScoreMultiplier
	c.ScoreFloor = cfg.ScoreFloor
	return c
}

// RetentionConfig maps the audit retention section.
func RetentionConfig(cfg config.RetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays: cfg.Days,
		PruneSchedule: cfg.Schedule,
		MaxEvents:     cfg.MaxEvents,
	}
}
