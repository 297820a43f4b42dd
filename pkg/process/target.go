// Package process models a process as a directed graph of named steps
// connected by events. Steps are opaque units of work identified by a
// StepID; an edge routes a step's named output event to a FunctionTarget on
// another step, optionally guarded by a Condition on the event payload.
//
// A StepGraph is assembled with a Builder, frozen by Build, and then consumed
// by two independent readers: the Dispatcher, which resolves where an emitted
// event goes, and Render, which projects the graph into a Mermaid flowchart.
// Neither mutates the graph, so a built graph is safe for concurrent use.
package process

import "strings"

// StepID identifies a step within a graph.
type StepID string

const (
	// StartStepID is the synthetic entry node. Input event bindings originate
	// here; it can never be registered or targeted.
	StartStepID StepID = "Start"

	// EndStepID is the step identifier of the terminal marker.
	EndStepID StepID = "End"

	// DefaultFunctionName is the entry point used by single-function steps.
	DefaultFunctionName = "Execute"

	// EndFunctionName is the reserved terminal function name. The renderer
	// matches it case-insensitively.
	EndFunctionName = "End"
)

// FunctionTarget addresses an invocable entry point on a step instance.
// It is a comparable value: two targets are equal when all fields are equal.
type FunctionTarget struct {
	StepID        StepID
	FunctionName  string
	ParameterName string
}

// StopTarget is the terminal marker: routing an event here stops the process.
var StopTarget = FunctionTarget{StepID: EndStepID, FunctionName: EndFunctionName}

// TargetStep returns a target for the default function of the step.
func TargetStep(h StepHandle) FunctionTarget {
	return FunctionTarget{StepID: h.ID(), FunctionName: DefaultFunctionName}
}

// TargetFunction returns a target for a named function of the step.
func TargetFunction(h StepHandle, function string) FunctionTarget {
	return FunctionTarget{StepID: h.ID(), FunctionName: function}
}

// WithParameter returns a copy of t that delivers the payload to the named
// parameter of the function.
func (t FunctionTarget) WithParameter(name string) FunctionTarget {
	t.ParameterName = name
	return t
}

// IsStop reports whether t is the terminal marker.
func (t FunctionTarget) IsStop() bool {
	return t.StepID == EndStepID
}

// IsEnd reports whether the function name is the reserved terminal name.
func (t FunctionTarget) IsEnd() bool {
	return strings.EqualFold(t.FunctionName, EndFunctionName)
}

func (t FunctionTarget) String() string {
	s := string(t.StepID) + "." + t.FunctionName
	if t.ParameterName != "" {
		s += "(" + t.ParameterName + ")"
	}
	return s
}

func reservedStepID(id StepID) bool {
	return id == StartStepID || id == EndStepID
}
