package process

import (
	"fmt"
)

// Condition decides whether an edge is traversable for a payload.
// Implementations must be pure functions of the payload.
type Condition interface {
	Evaluate(payload any) (bool, error)
	String() string
}

type funcCondition struct {
	fn    func(any) (bool, error)
	label string
}

func (c funcCondition) Evaluate(payload any) (bool, error) { return c.fn(payload) }
func (c funcCondition) String() string                     { return c.label }

// When adapts a plain predicate to a Condition.
func When(fn func(payload any) bool) Condition {
	if fn == nil {
		return nil
	}
	return funcCondition{
		fn:    func(p any) (bool, error) { return fn(p), nil },
		label: "func",
	}
}

// WhenErr adapts a predicate that can fail to a Condition.
func WhenErr(fn func(payload any) (bool, error)) Condition {
	if fn == nil {
		return nil
	}
	return funcCondition{fn: fn, label: "func"}
}

// Typed adapts a predicate over a concrete payload type. A payload of any
// other type fails with ErrPayloadType.
func Typed[T any](fn func(T) bool) Condition {
	if fn == nil {
		return nil
	}
	var zero T
	return funcCondition{
		fn: func(p any) (bool, error) {
			v, ok := p.(T)
			if !ok {
				return false, fmt.Errorf("%w: want %T, got %T", ErrPayloadType, zero, p)
			}
			return fn(v), nil
		},
		label: fmt.Sprintf("func(%T)", zero),
	}
}

// Labeled returns a copy of c that reports label from String.
func Labeled(c Condition, label string) Condition {
	if c == nil {
		return nil
	}
	return funcCondition{fn: c.Evaluate, label: label}
}

// evaluate runs c and converts a panic into an error.
func evaluate(c Condition, payload any) (ok bool, err error) {
	if c == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("condition panic: %v", r)
		}
	}()
	return c.Evaluate(payload)
}
