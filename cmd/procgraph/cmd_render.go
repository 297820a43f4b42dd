package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "procgraph/internal/mcp"
	"procgraph/pkg/process"
)

var renderFlags struct {
	source    graphSource
	direction string
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print a process as a Mermaid flowchart",
	Long: `Render a built-in sample or a YAML definition as a Mermaid flowchart.

Examples:
  procgraph render --sample simplest
  procgraph render -f approval.yaml --direction TD`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderFlags.source.register(renderCmd)
	renderCmd.Flags().StringVar(&renderFlags.direction, "direction", string(process.LeftRight), "Flowchart direction: LR, TD, RL or BT")
}

func runRender(cmd *cobra.Command, _ []string) error {
	dir, err := mcpserver.ParseDirection(renderFlags.direction)
	if err != nil {
		return err
	}
	l, err := renderFlags.source.load()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), process.RenderWithOptions(l.graph, process.RenderOptions{Direction: dir}))
	return nil
}
