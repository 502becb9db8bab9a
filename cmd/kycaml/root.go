package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/app"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/config"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kycaml",
	Short: "Compliance workflow compiler and engine",
	Long: `kycaml compiles visual compliance workflow graphs into execution plans
and runs them: client registration and document checks, sanctions, PEP,
watchlist and adverse media screening, risk scoring, transaction monitoring
and decisions, with a full audit trail per execution.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the mapped exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus KYCAML_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, markdown, json)")
}

// loadConfig loads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration and installs it
// as the slog default. Command output goes to stdout, logs to stderr.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		RedactPII: cfg.Telemetry.Logging.Redact(),
		Writer:    os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// buildApp loads configuration and wires the engine.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, app.Options{Logger: logger})
}

func formatter(cmd *cobra.Command) (*cli.Formatter, error) {
	return cli.NewFormatter(cli.OutputFormat(outputFormat), cmd.OutOrStdout())
}
