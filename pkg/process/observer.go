package process

import (
	"context"
	"log/slog"
	"sync"
)

// DispatchEventType classifies dispatch events for filtering and routing.
type DispatchEventType string

const (
	EventEdgeEvaluate   DispatchEventType = "edge_evaluate"
	EventRoute          DispatchEventType = "route"
	EventStop           DispatchEventType = "stop"
	EventDropped        DispatchEventType = "dropped"
	EventConditionError DispatchEventType = "condition_error"
)

// DispatchEvent is a single observation made while resolving an event.
// Edge is the index of the edge in its (step, event) list, or -1.
type DispatchEvent struct {
	Type   DispatchEventType
	Step   StepID
	Event  string
	Edge   int
	Target FunctionTarget
	Error  error
}

// DispatchObserver receives events during resolution. Observers are called
// synchronously from Resolve and must be safe for concurrent use when the
// dispatcher is shared.
type DispatchObserver interface {
	OnDispatch(DispatchEvent)
}

// DispatchObserverFunc adapts a plain function to DispatchObserver.
type DispatchObserverFunc func(DispatchEvent)

func (f DispatchObserverFunc) OnDispatch(e DispatchEvent) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []DispatchObserver

func (m MultiObserver) OnDispatch(e DispatchEvent) {
	for _, obs := range m {
		if obs != nil {
			obs.OnDispatch(e)
		}
	}
}

// LogObserver writes dispatch events as structured slog lines. Edge
// evaluations are logged at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnDispatch(e DispatchEvent) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.String("step", string(e.Step)),
		slog.String("name", e.Event),
	}
	if e.Edge >= 0 {
		attrs = append(attrs, slog.Int("edge", e.Edge))
	}
	if e.Target != (FunctionTarget{}) {
		attrs = append(attrs, slog.String("target", e.Target.String()))
	}

	switch {
	case e.Error != nil:
		attrs = append(attrs, slog.String("error", e.Error.Error()))
		logger.LogAttrs(context.Background(), slog.LevelWarn, "dispatch", attrs...)
	case e.Type == EventEdgeEvaluate:
		logger.LogAttrs(context.Background(), slog.LevelDebug, "dispatch", attrs...)
	default:
		logger.LogAttrs(context.Background(), slog.LevelInfo, "dispatch", attrs...)
	}
}

// TraceCollector accumulates dispatch events in memory. Safe for concurrent use.
type TraceCollector struct {
	mu     sync.Mutex
	events []DispatchEvent
}

func (t *TraceCollector) OnDispatch(e DispatchEvent) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of all collected events.
func (t *TraceCollector) Events() []DispatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DispatchEvent, len(t.events))
	copy(out, t.events)
	return out
}

// EventsOfType returns only events matching typ.
func (t *TraceCollector) EventsOfType(typ DispatchEventType) []DispatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []DispatchEvent
	for _, e := range t.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears collected events.
func (t *TraceCollector) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

func emitDispatch(obs DispatchObserver, e DispatchEvent) {
	if obs != nil {
		obs.OnDispatch(e)
	}
}
