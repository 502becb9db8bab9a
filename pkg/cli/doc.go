/*
Package cli provides the helpers shared by the kycaml commands: output
formatting, batch progress reporting, signal handling and exit codes.

Output Formatting:

Results render as a table (the default), Markdown or JSON:

	f, err := cli.NewFormatter(cli.FormatTable, os.Stdout)
	if err != nil {
		return err
	}
	f.Execution(exec)
	f.Events(events)

Exit Codes:

	os.Exit(cli.ExitCode(err))

maps configuration errors to 2, compilation errors to 3 and every other
failure to 1.
*/
package cli
