package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate [workflow-path]",
	Short: "Validate the configuration and compile every workflow file",
	Long: `Validate the configuration, then load and compile every workflow graph
under the given path (or workflows.path from configuration).

Examples:
  kycaml validate --config config.yaml
  kycaml validate workflows/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")

	path := cfg.Workflows.Path
	if len(args) == 1 {
		path = args[0]
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(out, "- no workflows at %s\n", path)
		return nil
	}

	defs, err := source.NewFileSource(path, logger).Load()
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	failures := map[string]error{}
	for _, def := range defs {
		res, err := compiler.Compile(def.Graph)
		if err != nil {
			failures[def.ID] = err
			continue
		}
		fmt.Fprintf(out, "✓ %s (%d nodes, %d warnings)\n", def.ID, len(res.Plan.Nodes), len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "    %s %s: %s\n", w.Code, w.NodeID, w.Message)
		}
	}
	if len(failures) == 0 {
		return nil
	}

	ids := make([]string, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var first error
	for _, id := range ids {
		fmt.Fprintf(out, "✗ %s: %v\n", id, failures[id])
		if first == nil {
			first = failures[id]
		}
	}
	return cli.NewCommandError("validate", fmt.Errorf("%d of %d workflows failed to compile: %w", len(failures), len(defs), first))
}
