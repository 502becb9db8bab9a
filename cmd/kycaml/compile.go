package main

import (
	"github.com/spf13/cobra"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/cli"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/compiler"
)

var compileCmd = &cobra.Command{
	Use:   "compile <graph-file>",
	Short: "Compile a workflow graph and print its execution plan",
	Long: `Compile a workflow graph (JSON or YAML) and print the plan inspection
text followed by any compilation warnings.

Exits with code 3 when the graph cannot be compiled.

Examples:
  kycaml compile workflows/onboarding.json
  kycaml compile workflows/monitoring.yaml -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	f, err := formatter(cmd)
	if err != nil {
		return err
	}
	g, err := workflow.LoadGraph(args[0])
	if err != nil {
		return cli.NewCommandError("compile", err)
	}
	res, err := compiler.Compile(g)
	if err != nil {
		return cli.NewCommandError("compile", err)
	}
	return f.Compile(res)
}
