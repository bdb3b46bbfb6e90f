package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lensctl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "lensctl",
	Short: "Show and run LSP code lenses from the terminal",
	Long: `lensctl starts the language servers configured for a file, collects their
code lenses and prints them next to the source, or runs the lens on a line.`,
	SilenceUsage: true,
}

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("config", "", "path to a lensctl config file")
	flags.String("ui", "auto", "interactive progress and picker (auto|on|off)")
	flags.Duration("timeout", defaultSettleTimeout, "how long to wait for servers to answer")
	flags.String("trace", "", "write trace events to file (- for stderr)")
	flags.String("trace-level", "", "trace level (off|error|cycle|detail|debug)")
	flags.String("trace-mode", "", "trace storage (stream|ring|both)")
	flags.String("trace-format", "", "trace format (auto|text|ndjson|msgpack)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
