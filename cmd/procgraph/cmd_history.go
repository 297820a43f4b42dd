package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"procgraph/internal/format"
	"procgraph/internal/journal"
)

var historyFlags struct {
	journalPath string
	table       string
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List journaled runs, or the dispatches of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.journalPath, "journal", envOr("PROCGRAPH_JOURNAL", journal.DefaultPath), "Run journal path")
	formatFlag(historyCmd, &historyFlags.table)
}

func runHistory(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(historyFlags.table)
	if err != nil {
		return err
	}
	if _, err := os.Stat(historyFlags.journalPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no journal at %s (run a process first)", historyFlags.journalPath)
	}
	j, err := journal.Open(historyFlags.journalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := j.ListRuns(ctx)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded")
			return nil
		}
		fmt.Fprintln(out, format.RunsTable(runs, mode))
		return nil
	}

	run, err := j.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	recs, err := j.Records(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("records for %s: %w", run.ID, err)
	}
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Process:  %s\n", run.Process)
	fmt.Fprintf(out, "Input:    %s\n", run.InputEvent)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Steps:    %d\n", run.Steps)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, format.RecordsTable(recs, mode))
	return nil
}
