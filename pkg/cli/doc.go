/*
Package cli provides helpers shared by the concierge commands.

Output Formatting:

Commands print results as text, JSON, or CSV. Values that implement Table
render as aligned columns in text mode and as rows in CSV mode:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, result)

Progress Reporting:

Long exports report progress on stderr:

	progress := cli.NewPageProgress(os.Stderr, "exporting audit records")
	progress.Start(total, pageSize)
	progress.Page(len(batch))
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes: 2 for configuration
errors, 1 for everything else.
*/
package cli
