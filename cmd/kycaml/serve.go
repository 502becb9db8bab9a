package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/app"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring/store"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/telemetry/health"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/source"
)

var serveFlags struct {
	listenAddress string
	workflowsPath string
	noWatch       bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deploy a workflow directory and keep it in sync",
	Long: `Deploy every workflow under workflows.path and redeploy on change,
run the audit retention and monitoring purge schedules, and serve
/metrics, /health, /ready and /version.

Examples:
  kycaml serve --config config.yaml
  kycaml serve --workflows ./workflows --listen 0.0.0.0:9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override telemetry.metrics.listen_address")
	serveCmd.Flags().StringVar(&serveFlags.workflowsPath, "workflows", "", "override workflows.path")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "deploy once without watching for changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	cfg := a.Config

	if serveFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.workflowsPath != "" {
		cfg.Workflows.Path = serveFlags.workflowsPath
	}
	if cfg.Workflows.Path == "" {
		return cli.NewConfigError("workflows.path", "serve requires a workflow path")
	}

	if err := a.Pruner().Scheduler().Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	if err := store.PurgeScheduler(a.Monitoring, cfg.Monitoring.PurgeSchedule).Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	syncer := source.NewSyncer(source.NewFileSource(cfg.Workflows.Path, a.Logger), a.Engine, cfg.Engine.TenantID, a.Logger)
	srv := &http.Server{
		Addr:              cfg.Telemetry.Metrics.ListenAddress,
		Handler:           newServeMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if serveFlags.noWatch || !cfg.Workflows.Watch {
			report, err := syncer.Sync(ctx)
			if err != nil {
				return err
			}
			logSync(a.Logger, report)
			return nil
		}
		watchCfg := source.DefaultWatcherConfig()
		if cfg.Workflows.Debounce > 0 {
			watchCfg.Debounce = cfg.Workflows.Debounce
		}
		return syncer.Run(ctx, watchCfg)
	})
	g.Go(func() error {
		a.Logger.Info("serving telemetry endpoints", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("telemetry server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("serve", err)
	}
	a.Logger.Info("shutdown complete")
	return nil
}

func newServeMux(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	if a.Metrics != nil {
		mux.Handle(a.Config.Telemetry.Metrics.Path, a.Metrics.Handler())
	}

	checker := health.New(5 * time.Second)
	checker.Register("persistence", func(ctx context.Context) error {
		_, err := a.Repository.ListWorkflows(ctx, a.Config.Engine.TenantID)
		return err
	})
	checker.Register("audit", func(ctx context.Context) error {
		_, err := a.Audit.Count(ctx, &audit.Query{Limit: 1})
		return err
	})
	checker.Register("monitoring", func(ctx context.Context) error {
		_, err := a.Monitoring.Get(ctx, "health:probe")
		return err
	})
	health.Mount(mux, checker, health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	}, 10)
	return mux
}

func logSync(logger *slog.Logger, report *source.SyncReport) {
	logger.Info("workflows synced",
		"deployed", len(report.Deployed),
		"unchanged", len(report.Unchanged),
		"failed", len(report.Failed),
	)
	for id, err := range report.Failed {
		logger.Error("workflow failed to deploy", "workflow_id", id, "error", err)
	}
}
