package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"procgraph/internal/journal"
	"procgraph/internal/logging"
	"procgraph/pkg/process"
)

const (
	// DefaultParallel bounds concurrent step invocations per dispatch.
	DefaultParallel = 4
	// DefaultMaxSteps bounds the invocations of one run.
	DefaultMaxSteps = 1000
)

var (
	// ErrMaxSteps is returned when a run exceeds Config.MaxSteps invocations.
	ErrMaxSteps = errors.New("host: step budget exhausted")

	// ErrNoFunction is returned when a routed target has no registered
	// implementation.
	ErrNoFunction = errors.New("host: no function registered for target")
)

// StepEvent reports a completed step invocation.
type StepEvent struct {
	RunID    string
	Target   process.FunctionTarget
	Duration time.Duration
	Err      error
}

// StepObserver receives step invocation results. Called from step
// goroutines, so implementations must be safe for concurrent use.
type StepObserver interface {
	OnStep(StepEvent)
}

// Config tunes a Runner. Zero values select defaults.
type Config struct {
	Parallel int
	MaxSteps int
	Journal  journal.Journal
	Observer process.DispatchObserver
	Steps    StepObserver
	Logger   *slog.Logger
}

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Process string
	// Steps counts step invocations.
	Steps int
	// Stopped is set when the run ended on the terminal marker rather than
	// by running out of events.
	Stopped bool
	// Invoked lists the invoked targets in dispatch order.
	Invoked []process.FunctionTarget
}

// Status maps the result and run error to a journal status.
func (r *Result) Status(runErr error) string {
	switch {
	case runErr != nil:
		return journal.StatusFailed
	case r.Stopped:
		return journal.StatusStopped
	default:
		return journal.StatusCompleted
	}
}

// Runner drives one graph with one registry. Safe for concurrent Run calls
// when the registered functions are.
type Runner struct {
	graph      *process.StepGraph
	registry   *Registry
	dispatcher *process.Dispatcher
	cfg        Config
	logger     *slog.Logger
}

// NewRunner returns a runner for g. Dispatch events go to a LogObserver at
// debug verbosity plus cfg.Observer.
func NewRunner(g *process.StepGraph, reg *Registry, cfg Config) *Runner {
	if cfg.Parallel <= 0 {
		cfg.Parallel = DefaultParallel
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("host")
	}
	obs := process.MultiObserver{&process.LogObserver{Logger: logger}, cfg.Observer}
	return &Runner{
		graph:      g,
		registry:   reg,
		dispatcher: process.NewDispatcher(g, process.WithDispatchObserver(obs)),
		cfg:        cfg,
		logger:     logger,
	}
}

func (r *Runner) Graph() *process.StepGraph { return r.graph }

// Run starts a new process instance with an input event and drives it until
// the terminal marker is reached or no events remain. Emitted events are
// processed in FIFO order; the targets of one dispatch run concurrently.
func (r *Runner) Run(ctx context.Context, event string, payload any) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Process: r.graph.Name()}
	logger := r.logger.With(slog.String("run_id", res.RunID), slog.String("process", res.Process))

	if r.cfg.Journal != nil {
		err := r.cfg.Journal.StartRun(ctx, journal.Run{ID: res.RunID, Process: res.Process, InputEvent: event})
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	logger.Info("run started", slog.String("input", event))
	runErr := r.loop(ctx, logger, res, event, payload)

	if r.cfg.Journal != nil {
		// Record the outcome even if ctx was cancelled.
		if err := r.cfg.Journal.FinishRun(context.WithoutCancel(ctx), res.RunID, res.Status(runErr), res.Steps, runErr); err != nil {
			logger.Warn("journal finish failed", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		logger.Error("run failed", slog.Int("steps", res.Steps), slog.String("error", runErr.Error()))
		return res, runErr
	}
	logger.Info("run finished", slog.Int("steps", res.Steps), slog.Bool("stopped", res.Stopped))
	return res, nil
}

func (r *Runner) loop(ctx context.Context, logger *slog.Logger, res *Result, event string, payload any) error {
	queue := []emitted{{source: process.StartStepID, event: event, payload: payload}}
	seq := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		em := queue[0]
		queue = queue[1:]

		resolution, err := r.dispatcher.Resolve(em.source, em.event, em.payload)
		r.record(ctx, logger, res.RunID, seq, em, resolution, err)
		seq++
		if err != nil {
			return fmt.Errorf("dispatch %s/%s: %w", em.source, em.event, err)
		}
		if resolution.Stop() {
			res.Stopped = true
			return nil
		}

		targets := resolution.Targets()
		if len(targets) == 0 {
			continue
		}
		if res.Steps+len(targets) > r.cfg.MaxSteps {
			return fmt.Errorf("%w: %d invocations allowed", ErrMaxSteps, r.cfg.MaxSteps)
		}

		out, err := r.invoke(ctx, res.RunID, targets, em.payload)
		res.Steps += len(targets)
		res.Invoked = append(res.Invoked, targets...)
		if err != nil {
			return err
		}
		queue = append(queue, out...)
	}
	return nil
}

// invoke runs targets concurrently, bounded by Config.Parallel, and returns
// their emitted events grouped in target order.
func (r *Runner) invoke(ctx context.Context, runID string, targets []process.FunctionTarget, payload any) ([]emitted, error) {
	fns := make([]Func, len(targets))
	for i, t := range targets {
		fn, ok := r.registry.Lookup(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoFunction, t)
		}
		fns[i] = fn
	}

	outs := make([][]emitted, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for i, t := range targets {
		g.Go(func() error {
			c := &collector{source: t.StepID}
			inv := Invocation{RunID: runID, Step: t.StepID, Function: t.FunctionName, Parameter: t.ParameterName, Payload: payload}

			start := time.Now()
			err := call(gctx, fns[i], inv, c)
			if r.cfg.Steps != nil {
				r.cfg.Steps.OnStep(StepEvent{RunID: runID, Target: t, Duration: time.Since(start), Err: err})
			}
			if err != nil {
				return fmt.Errorf("step %s: %w", t.StepID, err)
			}
			outs[i] = c.drain()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []emitted
	for _, o := range outs {
		all = append(all, o...)
	}
	return all, nil
}

// call runs fn and converts a panic into an error.
func call(ctx context.Context, fn Func, inv Invocation, emit Emitter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s.%s: %v", inv.Step, inv.Function, p)
		}
	}()
	return fn(ctx, inv, emit)
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, runID string, seq int, em emitted, res process.Resolution, dispatchErr error) {
	if r.cfg.Journal == nil {
		return
	}
	rec := journal.Record{
		RunID:   runID,
		Seq:     seq,
		Step:    string(em.source),
		Event:   em.event,
		Payload: encodePayload(em.payload),
		Stop:    res.Stop(),
	}
	for _, t := range res.Targets() {
		rec.Targets = append(rec.Targets, t.String())
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}
	if err := r.cfg.Journal.Append(ctx, rec); err != nil {
		logger.Warn("journal append failed", slog.Int("seq", seq), slog.String("error", err.Error()))
	}
}

func encodePayload(p any) string {
	if p == nil {
		return ""
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
