/*
Package cli provides helpers shared by the khawab commands.

Output Formatting:

History listings and model listings print as aligned text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, entries); err != nil {
		return err
	}

Streaming:

StreamPrinter writes interpretation chunks to stdout as they arrive:

	printer := cli.NewStreamPrinter(os.Stdout, os.Stderr)
	printer.Start("Interpreting your dream...")
	_, err := client.Interpret(ctx, req, printer.OnChunk)
	printer.Finish()

Signal Handling:

SetupSignalHandler cancels its context on Ctrl+C, which the interpretation
client reports as a user cancellation (exit code 130).
*/
package cli
