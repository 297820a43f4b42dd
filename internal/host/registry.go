// Package host runs built process graphs locally: it invokes step functions,
// feeds their emitted events back through the dispatcher and stops at the
// terminal marker.
package host

import (
	"context"
	"sort"
	"sync"

	"procgraph/pkg/process"
)

// Invocation describes one call of a step function.
type Invocation struct {
	RunID     string
	Step      process.StepID
	Function  string
	Parameter string
	Payload   any
}

// Emitter publishes events from a running step.
type Emitter interface {
	Emit(event string, payload any)
}

// Func is the body of a step function.
type Func func(ctx context.Context, inv Invocation, emit Emitter) error

type funcKey struct {
	step     process.StepID
	function string
}

// Registry maps step functions to their implementations.
type Registry struct {
	fns map[funcKey]Func
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[funcKey]Func)}
}

// Register binds fn to the named function of step, replacing any previous
// binding. It returns the registry for chaining.
func (r *Registry) Register(step process.StepID, function string, fn Func) *Registry {
	r.fns[funcKey{step: step, function: function}] = fn
	return r
}

// RegisterStep binds fn to the default Execute function of step.
func (r *Registry) RegisterStep(step process.StepID, fn Func) *Registry {
	return r.Register(step, process.DefaultFunctionName, fn)
}

// Lookup returns the function bound to target.
func (r *Registry) Lookup(target process.FunctionTarget) (Func, bool) {
	fn, ok := r.fns[funcKey{step: target.StepID, function: target.FunctionName}]
	return fn, ok
}

// Missing lists the edge targets in g that have no registered function,
// sorted for stable output.
func (r *Registry) Missing(g *process.StepGraph) []process.FunctionTarget {
	seen := make(map[process.FunctionTarget]bool)
	var out []process.FunctionTarget
	check := func(e process.Edge) {
		t := e.OutputTarget()
		t.ParameterName = ""
		if t.IsStop() || seen[t] {
			return
		}
		seen[t] = true
		if _, ok := r.Lookup(t); !ok {
			out = append(out, t)
		}
	}
	for _, ev := range g.InputEvents() {
		for _, e := range g.InputEdges(ev) {
			check(e)
		}
	}
	for _, e := range g.Edges() {
		check(e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

type emitted struct {
	source  process.StepID
	event   string
	payload any
}

// collector is the Emitter handed to a single invocation.
type collector struct {
	source process.StepID
	mu     sync.Mutex
	events []emitted
}

func (c *collector) Emit(event string, payload any) {
	c.mu.Lock()
	c.events = append(c.events, emitted{source: c.source, event: event, payload: payload})
	c.mu.Unlock()
}

func (c *collector) drain() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}
