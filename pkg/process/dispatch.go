package process

// Route is one accepted edge for an emitted event.
type Route struct {
	Edge   Edge
	Target FunctionTarget
	// Stop is set when the target is the terminal marker: the host should
	// stop the process instead of invoking a function.
	Stop bool
}

// Resolution is the ordered set of routes for an emitted event. An empty
// resolution means the event is dropped; this is not an error.
type Resolution struct {
	Step   StepID
	Event  string
	Routes []Route
}

// Empty reports whether no edge accepted the event.
func (r Resolution) Empty() bool { return len(r.Routes) == 0 }

// Stop reports whether any route targets the terminal marker.
func (r Resolution) Stop() bool {
	for _, rt := range r.Routes {
		if rt.Stop {
			return true
		}
	}
	return false
}

// Targets returns the function targets of the non-terminal routes.
func (r Resolution) Targets() []FunctionTarget {
	var out []FunctionTarget
	for _, rt := range r.Routes {
		if !rt.Stop {
			out = append(out, rt.Target)
		}
	}
	return out
}

// Dispatcher resolves emitted events against a built graph. It holds no
// mutable state and is safe for concurrent use.
type Dispatcher struct {
	graph    *StepGraph
	observer DispatchObserver
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchObserver attaches an observer that receives resolution events.
func WithDispatchObserver(obs DispatchObserver) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = obs
	}
}

// NewDispatcher returns a dispatcher over g.
func NewDispatcher(g *StepGraph, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{graph: g}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Graph() *StepGraph { return d.graph }

// Resolve evaluates every edge wired for (source, event) in registration
// order and returns a route for each edge whose condition accepts payload.
// A failing condition aborts resolution with a ConditionEvaluationError and
// no routes.
func (d *Dispatcher) Resolve(source StepID, event string, payload any) (Resolution, error) {
	res := Resolution{Step: source, Event: event}
	edges := d.graph.edgesFrom(source, event)

	for i, e := range edges {
		emitDispatch(d.observer, DispatchEvent{Type: EventEdgeEvaluate, Step: source, Event: event, Edge: i, Target: e.OutputTarget()})

		ok, err := e.Accepts(payload)
		if err != nil {
			cerr := &ConditionEvaluationError{Step: source, Event: event, Edge: i, Err: err}
			emitDispatch(d.observer, DispatchEvent{Type: EventConditionError, Step: source, Event: event, Edge: i, Error: cerr})
			return Resolution{Step: source, Event: event}, cerr
		}
		if !ok {
			continue
		}

		rt := Route{Edge: e, Target: e.OutputTarget(), Stop: e.OutputTarget().IsStop()}
		res.Routes = append(res.Routes, rt)
		typ := EventRoute
		if rt.Stop {
			typ = EventStop
		}
		emitDispatch(d.observer, DispatchEvent{Type: typ, Step: source, Event: event, Edge: i, Target: rt.Target})
	}

	if res.Empty() {
		emitDispatch(d.observer, DispatchEvent{Type: EventDropped, Step: source, Event: event, Edge: -1})
	}
	return res, nil
}

// ResolveInput resolves an input event bound on the synthetic Start node.
func (d *Dispatcher) ResolveInput(event string, payload any) (Resolution, error) {
	return d.Resolve(StartStepID, event, payload)
}

// Resolve is a convenience for NewDispatcher(g).Resolve.
func Resolve(g *StepGraph, source StepID, event string, payload any) (Resolution, error) {
	return NewDispatcher(g).Resolve(source, event, payload)
}
