// Package samples holds the built-in demo processes and their step bodies.
package samples

import (
	"embed"
	"fmt"
	"io"
	"sort"

	"procgraph/internal/host"
	"procgraph/pkg/process"
)

// StartProcess is the input event every sample binds.
const StartProcess = "StartProcess"

//go:embed definitions/*.yaml
var definitions embed.FS

// Sample is a named process with its step implementations.
type Sample struct {
	Name        string
	Description string
	InputEvent  string
	// Payload is sent with the input event when the caller supplies none.
	Payload any
	Build   func() (*process.StepGraph, error)
	// Steps returns step bodies that write their progress to w.
	Steps func(w io.Writer, g *process.StepGraph) *host.Registry
}

var builtin = []Sample{
	{
		Name:        "simplest",
		Description: "four steps in a line, the last one stops the process",
		InputEvent:  StartProcess,
		Build:       SimplestProcess,
		Steps:       simplestSteps,
	},
	{
		Name:        "simple",
		Description: "start, prepare, do the work, finish",
		InputEvent:  StartProcess,
		Build:       SimpleProcess,
		Steps:       simpleSteps,
	},
	{
		Name:        "conditional",
		Description: "branch on the sign of the input value",
		InputEvent:  StartProcess,
		Payload:     -5,
		Build:       ConditionalProcess,
		Steps:       conditionalSteps,
	},
	{
		Name:        "approval",
		Description: "YAML-defined review flow with expression conditions and fan-out",
		InputEvent:  "Submitted",
		Payload:     map[string]any{"amount": 250, "requester": "dana"},
		Build:       func() (*process.StepGraph, error) { return fromDefinition("definitions/approval.yaml") },
		Steps:       ForwardRegistry,
	},
}

// All returns the built-in samples sorted by name.
func All() []Sample {
	out := append([]Sample(nil), builtin...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sample names in sorted order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a sample by name.
func Lookup(name string) (Sample, bool) {
	for _, s := range builtin {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}

// Get is Lookup with an error listing the known names.
func Get(name string) (Sample, error) {
	s, ok := Lookup(name)
	if !ok {
		return Sample{}, fmt.Errorf("unknown sample %q (available: %v)", name, Names())
	}
	return s, nil
}

// Definition returns the raw YAML of an embedded definition, for samples
// that have one.
func Definition(name string) ([]byte, error) {
	return definitions.ReadFile("definitions/" + name + ".yaml")
}

func fromDefinition(path string) (*process.StepGraph, error) {
	data, err := definitions.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := process.LoadDefinition(data)
	if err != nil {
		return nil, err
	}
	return def.Build()
}
