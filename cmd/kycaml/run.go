package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/internal/app"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/persistence"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/source"
)

var runFlags struct {
	inputs      []string
	workflowID  string
	concurrency int
	trail       bool
	progress    bool
}

var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Deploy a workflow graph and run it against inputs",
	Long: `Save and deploy a workflow graph, then start one execution per input
document (JSON or YAML). Inputs run concurrently up to --concurrency.

A failed execution is reported in the results table and the command exits
with code 1 after every input has run.

Examples:
  # One run with an empty input
  kycaml run workflows/onboarding.json

  # One run, printing its audit trail
  kycaml run workflows/onboarding.json --input applicant.json --trail

  # A batch of monitoring runs
  kycaml run workflows/monitoring.yaml --input day1.json --input day2.json -j 4`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runFlags.inputs, "input", "i", nil, "input document (repeatable)")
	runCmd.Flags().StringVar(&runFlags.workflowID, "id", "", "workflow id (defaults to the file name)")
	runCmd.Flags().IntVarP(&runFlags.concurrency, "concurrency", "j", 0, "parallel executions (defaults to engine.concurrency)")
	runCmd.Flags().BoolVar(&runFlags.trail, "trail", false, "print the audit trail of a single execution")
	runCmd.Flags().BoolVar(&runFlags.progress, "progress", false, "report batch progress on stderr")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	f, err := formatter(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	inputs, err := loadInputs(runFlags.inputs)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	id := runFlags.workflowID
	if id == "" {
		id = source.WorkflowID(args[0])
	}
	if err := deployFile(ctx, a, id, args[0]); err != nil {
		return cli.NewCommandError("run", err)
	}

	concurrency := runFlags.concurrency
	if concurrency <= 0 {
		concurrency = a.Config.Engine.Concurrency
	}
	execs, err := startAll(ctx, a, id, inputs, concurrency)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if len(execs) == 1 {
		if err := f.Execution(execs[0]); err != nil {
			return err
		}
		if runFlags.trail {
			view, err := a.Engine.Get(ctx, execs[0].ID)
			if err != nil {
				return cli.NewCommandError("run", err)
			}
			if err := f.Events(view.Events); err != nil {
				return err
			}
		}
	} else if err := f.Executions(execs); err != nil {
		return err
	}

	failed := 0
	for _, e := range execs {
		if e.Status == runtime.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return cli.NewCommandError("run", fmt.Errorf("%d of %d executions failed", failed, len(execs)))
	}
	return nil
}

// deployFile saves and deploys the graph at path under id.
func deployFile(ctx context.Context, a *app.App, id, path string) error {
	g, err := workflow.LoadGraph(path)
	if err != nil {
		return err
	}
	if _, err := a.Engine.Save(ctx, id, a.Config.Engine.TenantID, id, g); err != nil {
		return err
	}
	_, res, err := a.Engine.Deploy(ctx, id)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		a.Logger.Warn("compile warning", "workflow_id", id, "node_id", w.NodeID, "code", w.Code, "message", w.Message)
	}
	return nil
}

// startAll runs one execution per input, at most concurrency at a time.
// Results keep the order of inputs. Executions that fail inside the
// interpreter are returned with status FAILED; only infrastructure errors
// abort the batch.
func startAll(ctx context.Context, a *app.App, workflowID string, inputs []map[string]any, concurrency int) ([]*persistence.Execution, error) {
	var progress *cli.Progress
	if runFlags.progress && len(inputs) > 1 {
		progress = cli.NewProgress(os.Stderr, len(inputs))
		defer progress.Finish()
	}

	execs := make([]*persistence.Execution, len(inputs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			exec, err := a.Engine.Start(ctx, workflowID, input)
			var fatal *runtime.HandlerFatalError
			if err != nil && !errors.As(err, &fatal) {
				return err
			}
			mu.Lock()
			execs[i] = exec
			mu.Unlock()
			if progress != nil {
				progress.Done(exec.Status == runtime.StatusFailed)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return execs, nil
}

func loadInputs(paths []string) ([]map[string]any, error) {
	if len(paths) == 0 {
		return []map[string]any{{}}, nil
	}
	inputs := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		input, err := workflow.DecodeInput(data, workflow.FormatFromPath(path))
		if err != nil {
			return nil, fmt.Errorf("decode input %s: %w", path, err)
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}
