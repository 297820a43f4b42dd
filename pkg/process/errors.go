package process

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateStep is returned when a step identifier is registered twice.
	ErrDuplicateStep = errors.New("process: duplicate step")

	// ErrDuplicateBinding is returned when an input event is bound twice.
	ErrDuplicateBinding = errors.New("process: duplicate input binding")

	// ErrInvalidEdgeConfiguration is returned when an edge is wired incorrectly,
	// e.g. a second condition or a second finalization.
	ErrInvalidEdgeConfiguration = errors.New("process: invalid edge configuration")

	// ErrUnresolvedTarget is returned by Build when an edge references a step
	// or function that is not registered.
	ErrUnresolvedTarget = errors.New("process: unresolved edge target")

	// ErrConditionEvaluation is returned by the dispatcher when an edge
	// condition fails to evaluate.
	ErrConditionEvaluation = errors.New("process: condition evaluation failed")

	// ErrInvalidEdge is returned when an edge is constructed without a source
	// or target.
	ErrInvalidEdge = errors.New("process: invalid edge")

	// ErrReservedStep is returned when registering the Start or End identifier.
	ErrReservedStep = errors.New("process: reserved step identifier")

	// ErrPayloadType is returned by typed conditions when the payload has an
	// unexpected type.
	ErrPayloadType = errors.New("process: unexpected payload type")
)

// DuplicateStepError reports a step identifier registered more than once.
type DuplicateStepError struct {
	Step StepID
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateStep, e.Step)
}

func (e *DuplicateStepError) Unwrap() error { return ErrDuplicateStep }

// DuplicateBindingError reports an input event bound more than once.
type DuplicateBindingError struct {
	Event string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("%s: event %q", ErrDuplicateBinding, e.Event)
}

func (e *DuplicateBindingError) Unwrap() error { return ErrDuplicateBinding }

// InvalidEdgeConfigurationError reports a misuse of the edge builder.
type InvalidEdgeConfigurationError struct {
	Step   StepID
	Event  string
	Reason string
}

func (e *InvalidEdgeConfigurationError) Error() string {
	return fmt.Sprintf("%s: step %q event %q: %s", ErrInvalidEdgeConfiguration, e.Step, e.Event, e.Reason)
}

func (e *InvalidEdgeConfigurationError) Unwrap() error { return ErrInvalidEdgeConfiguration }

// UnresolvedTargetError reports an edge whose target does not exist.
type UnresolvedTargetError struct {
	Step   StepID
	Event  string
	Target FunctionTarget
	Reason string
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("%s: step %q event %q -> %s: %s", ErrUnresolvedTarget, e.Step, e.Event, e.Target, e.Reason)
}

func (e *UnresolvedTargetError) Unwrap() error { return ErrUnresolvedTarget }

// ConditionEvaluationError tags a failed condition with the step and event
// that produced it. Edge is the index of the edge within the event's list.
type ConditionEvaluationError struct {
	Step  StepID
	Event string
	Edge  int
	Err   error
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("%s: step %q event %q edge %d: %v", ErrConditionEvaluation, e.Step, e.Event, e.Edge, e.Err)
}

// Unwrap exposes both the sentinel and the underlying predicate error.
func (e *ConditionEvaluationError) Unwrap() []error {
	return []error{ErrConditionEvaluation, e.Err}
}
