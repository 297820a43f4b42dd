package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procgraph/internal/format"
	"procgraph/internal/samples"
)

var samplesFlags struct {
	table string
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the built-in sample processes",
	Args:  cobra.NoArgs,
	RunE:  runSamples,
}

func init() {
	formatFlag(samplesCmd, &samplesFlags.table)
}

func runSamples(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(samplesFlags.table)
	if err != nil {
		return err
	}
	tb := format.NewTable(mode)
	tb.Header("Sample", "Input", "Steps", "Description")
	for _, sm := range samples.All() {
		g, err := sm.Build()
		if err != nil {
			return fmt.Errorf("build sample %s: %w", sm.Name, err)
		}
		tb.Row(sm.Name, sm.InputEvent, len(g.Steps()), sm.Description)
	}
	tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight})
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}

// formatFlag registers the --format flag shared by every table-printing
// command.
func formatFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "format", "ascii", "Table format: ascii, markdown or csv")
}
