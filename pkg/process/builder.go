package process

import (
	"errors"
	"fmt"
	"strings"
)

// Builder assembles a StepGraph declaratively. It is not safe for concurrent
// use. Wiring errors are returned by the method that detects them and are
// reported again by Build, so a malformed graph can never be built.
type Builder struct {
	name         string
	steps        []StepDescriptor
	stepIndex    map[StepID]int
	edges        map[StepID]*eventEdges
	inputs       *eventEdges
	strictFanOut bool
	errs         []error
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStrictFanOut rejects a second unconditional edge for the same
// (step, event) pair instead of treating it as fan-out.
func WithStrictFanOut() BuilderOption {
	return func(b *Builder) {
		b.strictFanOut = true
	}
}

// NewBuilder returns an empty builder for a process named name.
func NewBuilder(name string, opts ...BuilderOption) *Builder {
	b := &Builder{
		name:      name,
		stepIndex: make(map[StepID]int),
		edges:     make(map[StepID]*eventEdges),
		inputs:    newEventEdges(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Name() string { return b.name }

// Err returns every error recorded so far, or nil.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

func (b *Builder) record(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// StepHandle refers to a step registered in a Builder.
type StepHandle struct {
	id StepID
}

func (h StepHandle) ID() StepID { return h.id }

// StepOption configures a step at registration.
type StepOption func(*StepDescriptor)

// WithDisplayName sets the name shown in diagrams.
func WithDisplayName(name string) StepOption {
	return func(d *StepDescriptor) {
		d.Name = name
	}
}

// WithFunctions declares the step's invocable functions. Edges targeting an
// undeclared function fail at Build.
func WithFunctions(names ...string) StepOption {
	return func(d *StepDescriptor) {
		d.Functions = append(d.Functions, names...)
	}
}

// WithOutputEvents declares the events the step emits. OnEvent with an
// undeclared event is an invalid edge configuration.
func WithOutputEvents(names ...string) StepOption {
	return func(d *StepDescriptor) {
		d.OutputEvents = append(d.OutputEvents, names...)
	}
}

// RegisterStep adds a step to the graph.
func (b *Builder) RegisterStep(id StepID, opts ...StepOption) (StepHandle, error) {
	if strings.TrimSpace(string(id)) == "" {
		return StepHandle{}, b.record(fmt.Errorf("%w: empty step identifier", ErrInvalidEdge))
	}
	if reservedStepID(id) {
		return StepHandle{}, b.record(fmt.Errorf("%w: %q", ErrReservedStep, id))
	}
	if _, ok := b.stepIndex[id]; ok {
		return StepHandle{}, b.record(&DuplicateStepError{Step: id})
	}

	d := StepDescriptor{ID: id}
	for _, opt := range opts {
		opt(&d)
	}
	b.stepIndex[id] = len(b.steps)
	b.steps = append(b.steps, d)
	return StepHandle{id: id}, nil
}

// MustRegisterStep is like RegisterStep but panics on error.
func (b *Builder) MustRegisterStep(id StepID, opts ...StepOption) StepHandle {
	h, err := b.RegisterStep(id, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// BindInputEvent begins wiring the synthetic Start node's emission of event.
func (b *Builder) BindInputEvent(event string) *EdgeBuilder {
	eb := &EdgeBuilder{b: b, source: StartStepID, event: event, input: true}
	if strings.TrimSpace(event) == "" {
		eb.fail("empty input event name")
	}
	return eb
}

// OnEvent begins wiring an outgoing edge for the step's event.
func (b *Builder) OnEvent(h StepHandle, event string) *EdgeBuilder {
	eb := &EdgeBuilder{b: b, source: h.id, event: event}

	i, ok := b.stepIndex[h.id]
	switch {
	case !ok:
		eb.fail("step is not registered")
	case strings.TrimSpace(event) == "":
		eb.fail("empty event name")
	case !b.steps[i].hasOutputEvent(event):
		eb.fail("event is not declared by the step")
	}
	return eb
}

// Build validates and freezes the graph.
func (b *Builder) Build() (*StepGraph, error) {
	errs := append([]error(nil), b.errs...)

	check := func(e Edge, event string) {
		t := e.OutputTarget()
		if t.IsStop() {
			return
		}
		i, ok := b.stepIndex[t.StepID]
		if !ok {
			errs = append(errs, &UnresolvedTargetError{Step: e.SourceStepID(), Event: event, Target: t, Reason: "step is not registered"})
			return
		}
		if !b.steps[i].hasFunction(t.FunctionName) {
			errs = append(errs, &UnresolvedTargetError{Step: e.SourceStepID(), Event: event, Target: t, Reason: "function is not declared by the step"})
		}
	}

	for _, ev := range b.inputs.order {
		for _, e := range b.inputs.byName[ev] {
			check(e, ev)
		}
	}
	for _, s := range b.steps {
		ee, ok := b.edges[s.ID]
		if !ok {
			continue
		}
		for _, ev := range ee.order {
			for _, e := range ee.byName[ev] {
				check(e, ev)
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("build process %q: %w", b.name, err)
	}

	g := &StepGraph{
		name:      b.name,
		steps:     make([]StepDescriptor, len(b.steps)),
		stepIndex: make(map[StepID]int, len(b.steps)),
		edges:     make(map[StepID]*eventEdges, len(b.edges)),
		inputs:    b.inputs.clone(),
	}
	for i, s := range b.steps {
		g.steps[i] = s.clone()
		g.stepIndex[s.ID] = i
	}
	for id, ee := range b.edges {
		g.edges[id] = ee.clone()
	}
	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *StepGraph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

func (ee *eventEdges) clone() *eventEdges {
	out := &eventEdges{
		order:  append([]string(nil), ee.order...),
		byName: make(map[string][]Edge, len(ee.byName)),
	}
	for k, v := range ee.byName {
		out.byName[k] = append([]Edge(nil), v...)
	}
	return out
}

// EdgeBuilder wires a single edge. It is finalized by SendEventTo or
// StopProcess; either may be called once.
type EdgeBuilder struct {
	b         *Builder
	source    StepID
	event     string
	input     bool
	condition Condition
	err       error
	done      bool
}

func (eb *EdgeBuilder) fail(reason string) error {
	err := &InvalidEdgeConfigurationError{Step: eb.source, Event: eb.event, Reason: reason}
	if eb.err == nil {
		eb.err = err
	}
	return eb.b.record(err)
}

// When attaches a condition. Only one condition is allowed per edge.
func (eb *EdgeBuilder) When(cond Condition) *EdgeBuilder {
	switch {
	case eb.done:
		eb.fail("condition added after the edge was finalized")
	case cond == nil:
		eb.fail("nil condition")
	case eb.condition != nil:
		eb.fail("condition already set")
	default:
		eb.condition = cond
	}
	return eb
}

// SendEventTo finalizes the edge with target, appending it after any edges
// already wired for the same step and event.
func (eb *EdgeBuilder) SendEventTo(target FunctionTarget) error {
	if eb.done {
		return eb.fail("edge already finalized")
	}
	eb.done = true
	if eb.err != nil {
		return eb.err
	}
	if target.StepID == StartStepID {
		return eb.fail("the Start node cannot be targeted")
	}

	e, err := NewEdge(eb.source, target, eb.condition)
	if err != nil {
		return eb.b.record(err)
	}

	if eb.input {
		if _, ok := eb.b.inputs.byName[eb.event]; ok {
			return eb.b.record(&DuplicateBindingError{Event: eb.event})
		}
		eb.b.inputs.add(eb.event, e)
		return nil
	}

	ee, ok := eb.b.edges[eb.source]
	if !ok {
		ee = newEventEdges()
		eb.b.edges[eb.source] = ee
	}
	if eb.b.strictFanOut && !e.IsConditional() {
		for _, prior := range ee.byName[eb.event] {
			if !prior.IsConditional() {
				return eb.fail("more than one unconditional edge")
			}
		}
	}
	ee.add(eb.event, e)
	return nil
}

// StopProcess finalizes the edge with the terminal marker.
func (eb *EdgeBuilder) StopProcess() error {
	return eb.SendEventTo(StopTarget)
}
