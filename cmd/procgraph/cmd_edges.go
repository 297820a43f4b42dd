package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procgraph/internal/format"
)

var edgesFlags struct {
	source graphSource
	table  string
	steps  bool
}

var edgesCmd = &cobra.Command{
	Use:   "edges",
	Short: "List a process's input bindings and edges in dispatch order",
	Args:  cobra.NoArgs,
	RunE:  runEdges,
}

func init() {
	edgesFlags.source.register(edgesCmd)
	f := edgesCmd.Flags()
	formatFlag(edgesCmd, &edgesFlags.table)
	f.BoolVar(&edgesFlags.steps, "steps", false, "Also list the registered steps")
}

func runEdges(cmd *cobra.Command, _ []string) error {
	l, err := edgesFlags.source.load()
	if err != nil {
		return err
	}
	mode, err := format.ParseMode(edgesFlags.table)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if edgesFlags.steps {
		fmt.Fprintln(out, format.StepsTable(l.graph, mode))
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, format.EdgesTable(l.graph, mode))
	return nil
}
