package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"procgraph/internal/host"
	"procgraph/internal/samples"
	"procgraph/pkg/process"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// graphSource selects a process by built-in sample name or YAML file.
type graphSource struct {
	sample string
	file   string
}

func (s *graphSource) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&s.sample, "sample", "", "Built-in sample name (see 'procgraph samples')")
	f.StringVarP(&s.file, "file", "f", "", "Path to a YAML process definition")
	cmd.MarkFlagsMutuallyExclusive("sample", "file")
	cmd.MarkFlagsOneRequired("sample", "file")
}

// loaded is a built graph plus what is needed to run it.
type loaded struct {
	graph      *process.StepGraph
	inputEvent string
	payload    any
	steps      func(w io.Writer, g *process.StepGraph) *host.Registry
}

func (s *graphSource) load() (*loaded, error) {
	if s.sample != "" {
		sm, err := samples.Get(s.sample)
		if err != nil {
			return nil, err
		}
		g, err := sm.Build()
		if err != nil {
			return nil, fmt.Errorf("build sample %s: %w", sm.Name, err)
		}
		return &loaded{graph: g, inputEvent: sm.InputEvent, payload: sm.Payload, steps: sm.Steps}, nil
	}

	def, err := readDefinition(s.file)
	if err != nil {
		return nil, err
	}
	g, err := def.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", s.file, err)
	}
	l := &loaded{graph: g, steps: samples.ForwardRegistry}
	if inputs := g.InputEvents(); len(inputs) > 0 {
		l.inputEvent = inputs[0]
	}
	return l, nil
}

func readDefinition(path string) (*process.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	def, err := process.LoadDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
