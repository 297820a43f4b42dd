// procgraph builds, renders and runs event-driven step graphs.
//
// Usage:
//
//	procgraph samples
//	procgraph render --sample conditional [--direction TD]
//	procgraph edges -f process.yaml [--format markdown]
//	procgraph validate -f process.yaml
//	procgraph resolve --sample conditional --step CheckValueStep --event CheckValueStep_Executed --payload 5
//	procgraph run --sample approval [--journal .procgraph/journal.db]
//	procgraph history [RUN_ID]
//	procgraph serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"procgraph/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "procgraph",
	Short: "Event-driven process graphs: build, render, resolve, run",
	Long: `procgraph wires steps together with event-triggered, optionally
conditional edges, renders the result as a Mermaid flowchart, and drives
processes to completion with a local host runtime.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", envOr("PROCGRAPH_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error (default: $PROCGRAPH_LOG_LEVEL or warn)")
	pf.StringVar(&rootFlags.logFormat, "log-format", logging.FormatText, "Log format: text or json")

	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(edgesCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func initLogging(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(rootFlags.logFormat)
	if err != nil {
		return err
	}
	logging.Init(level, format, cmd.ErrOrStderr())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
