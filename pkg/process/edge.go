package process

import (
	"fmt"
	"strings"
)

// Edge is a directed, optionally conditional route from a source step to a
// function target. Edges are immutable once constructed; the target step is
// always derived from the output target.
type Edge struct {
	source    StepID
	target    FunctionTarget
	condition Condition
}

// NewEdge constructs an edge. A nil condition means the edge is always
// traversable.
func NewEdge(source StepID, target FunctionTarget, cond Condition) (Edge, error) {
	if strings.TrimSpace(string(source)) == "" {
		return Edge{}, fmt.Errorf("%w: empty source step", ErrInvalidEdge)
	}
	if strings.TrimSpace(string(target.StepID)) == "" {
		return Edge{}, fmt.Errorf("%w: empty target step", ErrInvalidEdge)
	}
	return Edge{source: source, target: target, condition: cond}, nil
}

func (e Edge) SourceStepID() StepID         { return e.source }
func (e Edge) TargetStepID() StepID         { return e.target.StepID }
func (e Edge) OutputTarget() FunctionTarget { return e.target }
func (e Edge) Condition() Condition         { return e.condition }

// IsConditional reports whether the edge carries a condition.
func (e Edge) IsConditional() bool { return e.condition != nil }

// Accepts evaluates the edge condition against payload.
func (e Edge) Accepts(payload any) (bool, error) {
	return evaluate(e.condition, payload)
}

func (e Edge) String() string {
	s := fmt.Sprintf("%s -> %s", e.source, e.target)
	if e.condition != nil {
		s += " when " + e.condition.String()
	}
	return s
}
