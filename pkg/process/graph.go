package process

import "slices"

// StepDescriptor describes a registered step. Functions and OutputEvents are
// the step's declared tables; an empty table accepts any name.
type StepDescriptor struct {
	ID           StepID
	Name         string
	Functions    []string
	OutputEvents []string
}

// DisplayName returns the human-readable name, falling back to the ID.
func (d StepDescriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return string(d.ID)
}

func (d StepDescriptor) hasFunction(name string) bool {
	return len(d.Functions) == 0 || slices.Contains(d.Functions, name)
}

func (d StepDescriptor) hasOutputEvent(name string) bool {
	return len(d.OutputEvents) == 0 || slices.Contains(d.OutputEvents, name)
}

func (d StepDescriptor) clone() StepDescriptor {
	d.Functions = slices.Clone(d.Functions)
	d.OutputEvents = slices.Clone(d.OutputEvents)
	return d
}

// eventEdges keeps a step's edges grouped by event while remembering the
// order in which events were first wired.
type eventEdges struct {
	order  []string
	byName map[string][]Edge
}

func newEventEdges() *eventEdges {
	return &eventEdges{byName: make(map[string][]Edge)}
}

func (ee *eventEdges) add(event string, e Edge) {
	if _, ok := ee.byName[event]; !ok {
		ee.order = append(ee.order, event)
	}
	ee.byName[event] = append(ee.byName[event], e)
}

// StepGraph is the frozen collection of steps and edges. All accessors
// return copies, so a graph is safe for concurrent readers.
type StepGraph struct {
	name      string
	steps     []StepDescriptor
	stepIndex map[StepID]int
	edges     map[StepID]*eventEdges
	inputs    *eventEdges
}

func (g *StepGraph) Name() string { return g.name }

// Steps returns the registered steps in registration order.
func (g *StepGraph) Steps() []StepDescriptor {
	out := make([]StepDescriptor, len(g.steps))
	for i, s := range g.steps {
		out[i] = s.clone()
	}
	return out
}

// Step looks up a registered step.
func (g *StepGraph) Step(id StepID) (StepDescriptor, bool) {
	i, ok := g.stepIndex[id]
	if !ok {
		return StepDescriptor{}, false
	}
	return g.steps[i].clone(), true
}

// Events returns the events that have outgoing edges from step, in the
// order they were first wired.
func (g *StepGraph) Events(step StepID) []string {
	ee, ok := g.edges[step]
	if !ok {
		return nil
	}
	return slices.Clone(ee.order)
}

// EdgesFor returns the edges for a (step, event) pair in registration order.
func (g *StepGraph) EdgesFor(step StepID, event string) []Edge {
	ee, ok := g.edges[step]
	if !ok {
		return nil
	}
	return slices.Clone(ee.byName[event])
}

// Edges returns every step edge: steps in registration order, events in
// wiring order, edges in registration order.
func (g *StepGraph) Edges() []Edge {
	var out []Edge
	for _, s := range g.steps {
		ee, ok := g.edges[s.ID]
		if !ok {
			continue
		}
		for _, ev := range ee.order {
			out = append(out, ee.byName[ev]...)
		}
	}
	return out
}

// InputEvents returns the bound input event names in binding order.
func (g *StepGraph) InputEvents() []string {
	return slices.Clone(g.inputs.order)
}

// InputEdges returns the edges bound to an input event.
func (g *StepGraph) InputEdges(event string) []Edge {
	return slices.Clone(g.inputs.byName[event])
}

// HasIncoming reports whether any step edge targets id. Input bindings are
// not considered.
func (g *StepGraph) HasIncoming(id StepID) bool {
	for _, ee := range g.edges {
		for _, edges := range ee.byName {
			for _, e := range edges {
				if e.TargetStepID() == id {
					return true
				}
			}
		}
	}
	return false
}

func (g *StepGraph) edgesFrom(source StepID, event string) []Edge {
	if source == StartStepID {
		return g.inputs.byName[event]
	}
	ee, ok := g.edges[source]
	if !ok {
		return nil
	}
	return ee.byName[event]
}
