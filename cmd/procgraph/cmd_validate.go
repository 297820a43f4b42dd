package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateFlags struct {
	file string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a YAML process definition and build it",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "Path to a YAML process definition (required)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	def, err := readDefinition(validateFlags.file)
	if err != nil {
		return err
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("%s: %w", validateFlags.file, err)
	}
	g, err := def.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", validateFlags.file, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d steps, %d edges, inputs %v)\n",
		g.Name(), len(g.Steps()), len(g.Edges()), g.InputEvents())
	return nil
}
