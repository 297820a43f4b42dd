package process

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a process graph.
type Definition struct {
	Process     string       `yaml:"process"`
	Description string       `yaml:"description,omitempty"`
	Steps       []StepDef    `yaml:"steps"`
	Inputs      []BindingDef `yaml:"inputs,omitempty"`
	Edges       []EdgeDef    `yaml:"edges,omitempty"`
}

// StepDef declares a step and its optional function and event tables.
type StepDef struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name,omitempty"`
	Functions []string `yaml:"functions,omitempty"`
	Events    []string `yaml:"events,omitempty"`
}

// BindingDef binds an input event to a target step.
type BindingDef struct {
	Event     string `yaml:"event"`
	To        string `yaml:"to"`
	Function  string `yaml:"function,omitempty"`
	Parameter string `yaml:"parameter,omitempty"`
	When      string `yaml:"when,omitempty"`
}

// EdgeDef declares an edge from a step's event. Exactly one of To and Stop
// must be set.
type EdgeDef struct {
	From      string `yaml:"from"`
	Event     string `yaml:"event"`
	To        string `yaml:"to,omitempty"`
	Function  string `yaml:"function,omitempty"`
	Parameter string `yaml:"parameter,omitempty"`
	When      string `yaml:"when,omitempty"`
	Stop      bool   `yaml:"stop,omitempty"`
}

// LoadDefinition parses a YAML process definition.
func LoadDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse process YAML: %w", err)
	}
	return &def, nil
}

// Marshal serializes the definition back to YAML.
func (def *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(def)
}

// Validate checks the parts of a definition the builder cannot see: names
// and the To/Stop exclusivity of edges. Referential integrity is checked by
// Build.
func (def *Definition) Validate() error {
	if def.Process == "" {
		return fmt.Errorf("process name is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, e := range def.Edges {
		if e.From == "" {
			return fmt.Errorf("edge %d: from is required", i)
		}
		if e.Stop == (e.To != "") {
			return fmt.Errorf("edge %d (%s/%s): exactly one of to and stop must be set", i, e.From, e.Event)
		}
	}
	for i, in := range def.Inputs {
		if in.To == "" {
			return fmt.Errorf("input %d (%s): to is required", i, in.Event)
		}
	}
	return nil
}

// Build constructs a StepGraph from the definition. Conditions are compiled
// as expressions (see Expr).
func (def *Definition) Build(opts ...BuilderOption) (*StepGraph, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	b := NewBuilder(def.Process, opts...)
	handles := make(map[string]StepHandle, len(def.Steps))
	for _, sd := range def.Steps {
		var so []StepOption
		if sd.Name != "" {
			so = append(so, WithDisplayName(sd.Name))
		}
		if len(sd.Functions) > 0 {
			so = append(so, WithFunctions(sd.Functions...))
		}
		if len(sd.Events) > 0 {
			so = append(so, WithOutputEvents(sd.Events...))
		}
		h, err := b.RegisterStep(StepID(sd.ID), so...)
		if err != nil {
			continue
		}
		handles[sd.ID] = h
	}

	var errs []error
	for _, in := range def.Inputs {
		eb := b.BindInputEvent(in.Event)
		if err := wire(eb, in.When, targetDef(in.To, in.Function, in.Parameter), false); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ed := range def.Edges {
		h, ok := handles[ed.From]
		if !ok {
			h = StepHandle{id: StepID(ed.From)}
		}
		eb := b.OnEvent(h, ed.Event)
		if err := wire(eb, ed.When, targetDef(ed.To, ed.Function, ed.Parameter), ed.Stop); err != nil {
			errs = append(errs, err)
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("build process %q: %w", def.Process, err)
	}
	return g, nil
}

func targetDef(to, function, parameter string) FunctionTarget {
	if function == "" {
		function = DefaultFunctionName
	}
	return FunctionTarget{StepID: StepID(to), FunctionName: function, ParameterName: parameter}
}

// wire finalizes eb. Expression compile errors are not builder errors, so
// they are returned separately.
func wire(eb *EdgeBuilder, when string, target FunctionTarget, stop bool) error {
	if when != "" {
		cond, err := Expr(when)
		if err != nil {
			return err
		}
		eb.When(cond)
	}
	if stop {
		_ = eb.StopProcess()
	} else {
		_ = eb.SendEventTo(target)
	}
	return nil
}
