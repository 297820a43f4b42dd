package samples

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"procgraph/internal/host"
	"procgraph/pkg/process"
)

// executed returns the output event name of a single-function step.
func executed(step process.StepID) string {
	return string(step) + "_Executed"
}

// say prints line and emits the step's Executed event without data.
func say(w io.Writer, line string) host.Func {
	return func(_ context.Context, inv host.Invocation, emit host.Emitter) error {
		fmt.Fprintln(w, line)
		emit.Emit(executed(inv.Step), nil)
		return nil
	}
}

// checkValue normalizes the payload to an int, reports it and forwards it.
func checkValue(w io.Writer) host.Func {
	return func(_ context.Context, inv host.Invocation, emit host.Emitter) error {
		value := ToInt(inv.Payload)
		fmt.Fprintf(w, "Checking value: %d\n", value)
		emit.Emit(executed(inv.Step), value)
		return nil
	}
}

// ToInt converts numeric payloads to int. Anything else, including
// fractional numbers, becomes 0.
func ToInt(p any) int {
	switch v := p.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// forward emits the first declared output event of the step, or
// "<step>_Executed", passing the payload through. It backs steps of
// definitions loaded from YAML.
func forward(w io.Writer, g *process.StepGraph) host.Func {
	return func(_ context.Context, inv host.Invocation, emit host.Emitter) error {
		event := executed(inv.Step)
		if d, ok := g.Step(inv.Step); ok {
			fmt.Fprintf(w, "%s.%s\n", d.DisplayName(), inv.Function)
			if len(d.OutputEvents) > 0 {
				event = d.OutputEvents[0]
			}
		}
		emit.Emit(event, inv.Payload)
		return nil
	}
}

// lockedWriter serializes writes from steps running in parallel.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ForwardRegistry binds every step function of g to a pass-through body.
// Steps without a declared function table get Execute.
func ForwardRegistry(w io.Writer, g *process.StepGraph) *host.Registry {
	reg := host.NewRegistry()
	fn := forward(&lockedWriter{w: w}, g)
	for _, s := range g.Steps() {
		if len(s.Functions) == 0 {
			reg.RegisterStep(s.ID, fn)
			continue
		}
		for _, f := range s.Functions {
			reg.Register(s.ID, f, fn)
		}
	}
	return reg
}
