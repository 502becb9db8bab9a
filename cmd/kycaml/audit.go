package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/app"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit/export"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/audit/retention"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
)

var auditFlags struct {
	format      string
	out         string
	executionID string
	tenantID    string
	nodeID      string
	types       []string
	since       string
	until       string
	limit       int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect, export and prune the execution audit trail",
	Long: `Inspect, export and prune the execution audit trail stored in the
configured audit backend. The memory backend does not outlive a process,
so these commands are useful with the sqlite backend.`,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <execution-id>",
	Short: "Print the audit trail of one execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit events as JSON or CSV",
	Long: `Export audit events matching the filters as JSON or CSV.

Examples:
  kycaml audit export --execution 5f0c... --format json
  kycaml audit export --since 2026-01-01T00:00:00Z --type NODE_END --out events.csv`,
	RunE: runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the configured retention policy once",
	RunE:  runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditShowCmd, auditExportCmd, auditPruneCmd)

	f := auditExportCmd.Flags()
	f.StringVar(&auditFlags.format, "format", "json", "export format (json, csv)")
	f.StringVar(&auditFlags.out, "out", "", "output file (defaults to stdout)")
	f.StringVar(&auditFlags.executionID, "execution", "", "filter by execution id")
	f.StringVar(&auditFlags.tenantID, "tenant", "", "filter by tenant id")
	f.StringVar(&auditFlags.nodeID, "node", "", "filter by node id")
	f.StringSliceVar(&auditFlags.types, "type", nil, "filter by event type (repeatable)")
	f.StringVar(&auditFlags.since, "since", "", "RFC 3339 lower time bound")
	f.StringVar(&auditFlags.until, "until", "", "RFC 3339 upper time bound")
	f.IntVar(&auditFlags.limit, "limit", 0, "maximum number of events")
}

func openAudit() (audit.Store, *retention.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if _, err := newLogger(cfg); err != nil {
		return nil, nil, err
	}
	s, err := app.OpenAuditStore(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	return s, app.RetentionConfig(cfg.Audit.Retention), nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	f, err := formatter(cmd)
	if err != nil {
		return err
	}
	s, _, err := openAudit()
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.QueryByExecution(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("audit show", err)
	}
	if len(events) == 0 {
		return cli.NewCommandError("audit show", fmt.Errorf("no audit events for execution %s", args[0]))
	}
	return f.Events(events)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	exporter, ok := export.ForFormat(auditFlags.format, true)
	if !ok {
		return cli.NewConfigError("format", fmt.Sprintf("unsupported export format %q", auditFlags.format))
	}
	query, err := exportQuery()
	if err != nil {
		return err
	}

	s, _, err := openAudit()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	events, err := s.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if auditFlags.out != "" {
		file, err := os.Create(auditFlags.out)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer file.Close()
		w = file
	}
	if err := exporter.Export(ctx, events, w); err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.out != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d events to %s\n", len(events), auditFlags.out)
	}
	return nil
}

func exportQuery() (*audit.Query, error) {
	q := &audit.Query{
		ExecutionID: auditFlags.executionID,
		TenantID:    auditFlags.tenantID,
		NodeID:      auditFlags.nodeID,
		Limit:       auditFlags.limit,
	}
	for _, t := range auditFlags.types {
		q.Types = append(q.Types, audit.EventType(t))
	}
	var err error
	if q.StartTime, err = parseTime("since", auditFlags.since); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTime("until", auditFlags.until); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(flag, fmt.Sprintf("invalid RFC 3339 time %q", value))
	}
	return &t, nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	s, retentionCfg, err := openAudit()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	deleted, err := retention.NewPruner(s, retentionCfg).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d audit events\n", deleted)
	return nil
}
