package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"procgraph/internal/journal"
	"procgraph/pkg/process"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// emitExecuted is a step body that forwards its payload as "Executed".
func emitExecuted(_ context.Context, inv Invocation, emit Emitter) error {
	emit.Emit("Executed", inv.Payload)
	return nil
}

func chain(ids ...process.StepID) (*process.StepGraph, *Registry) {
	b := process.NewBuilder("chain")
	reg := NewRegistry()
	handles := make([]process.StepHandle, len(ids))
	for i, id := range ids {
		handles[i] = b.MustRegisterStep(id)
		reg.RegisterStep(id, emitExecuted)
	}
	_ = b.BindInputEvent("StartProcess").SendEventTo(process.TargetStep(handles[0]))
	for i := 0; i+1 < len(handles); i++ {
		_ = b.OnEvent(handles[i], "Executed").SendEventTo(process.TargetStep(handles[i+1]))
	}
	_ = b.OnEvent(handles[len(handles)-1], "Executed").StopProcess()
	return b.MustBuild(), reg
}

type stepRecorder struct {
	mu     sync.Mutex
	events []StepEvent
}

func (s *stepRecorder) OnStep(e StepEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

var _ = ginkgo.Describe("Runner", func() {
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
	})

	ginkgo.It("drives a linear process to the terminal marker", func() {
		g, reg := chain("start", "work", "finish")
		res, err := NewRunner(g, reg, Config{Logger: quietLogger}).Run(ctx, "StartProcess", nil)

		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(res.Stopped).To(gomega.BeTrue())
		gomega.Expect(res.Steps).To(gomega.Equal(3))
		gomega.Expect(res.RunID).NotTo(gomega.BeEmpty())
		gomega.Expect(res.Invoked).To(gomega.Equal([]process.FunctionTarget{
			{StepID: "start", FunctionName: "Execute"},
			{StepID: "work", FunctionName: "Execute"},
			{StepID: "finish", FunctionName: "Execute"},
		}))
	})

	ginkgo.It("completes without stopping when events run out", func() {
		b := process.NewBuilder("quiet")
		a := b.MustRegisterStep("a")
		gomega.Expect(b.BindInputEvent("go").SendEventTo(process.TargetStep(a))).To(gomega.Succeed())
		reg := NewRegistry().RegisterStep("a", func(context.Context, Invocation, Emitter) error { return nil })

		res, err := NewRunner(b.MustBuild(), reg, Config{Logger: quietLogger}).Run(ctx, "go", nil)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(res.Stopped).To(gomega.BeFalse())
		gomega.Expect(res.Steps).To(gomega.Equal(1))
		gomega.Expect(res.Status(nil)).To(gomega.Equal(journal.StatusCompleted))
	})

	ginkgo.It("ignores an unbound input event", func() {
		g, reg := chain("a")
		res, err := NewRunner(g, reg, Config{Logger: quietLogger}).Run(ctx, "Unknown", nil)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(res.Steps).To(gomega.BeZero())
	})

	ginkgo.It("routes by condition and passes the payload along", func() {
		b := process.NewBuilder("branch")
		check := b.MustRegisterStep("check")
		pos := b.MustRegisterStep("positive")
		neg := b.MustRegisterStep("negative")
		_ = b.BindInputEvent("StartProcess").SendEventTo(process.TargetStep(check))
		_ = b.OnEvent(check, "Executed").When(process.Typed(func(v int) bool { return v > 0 })).SendEventTo(process.TargetStep(pos))
		_ = b.OnEvent(check, "Executed").When(process.Typed(func(v int) bool { return v <= 0 })).SendEventTo(process.TargetStep(neg))
		_ = b.OnEvent(pos, "Executed").StopProcess()
		_ = b.OnEvent(neg, "Executed").StopProcess()
		g := b.MustBuild()

		var seen atomic.Value
		reg := NewRegistry().
			RegisterStep("check", emitExecuted).
			RegisterStep("positive", func(_ context.Context, inv Invocation, e Emitter) error {
				seen.Store("positive")
				e.Emit("Executed", nil)
				return nil
			}).
			RegisterStep("negative", func(_ context.Context, inv Invocation, e Emitter) error {
				seen.Store("negative")
				e.Emit("Executed", nil)
				return nil
			})
		runner := NewRunner(g, reg, Config{Logger: quietLogger})

		_, err := runner.Run(ctx, "StartProcess", -5)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(seen.Load()).To(gomega.Equal("negative"))

		_, err = runner.Run(ctx, "StartProcess", 7)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(seen.Load()).To(gomega.Equal("positive"))
	})

	ginkgo.It("runs fan-out targets concurrently within the parallel bound", func() {
		b := process.NewBuilder("fanout")
		src := b.MustRegisterStep("src")
		reg := NewRegistry().RegisterStep("src", emitExecuted)

		var running, peak int32
		worker := func(context.Context, Invocation, Emitter) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}
		for _, id := range []process.StepID{"w1", "w2", "w3", "w4"} {
			h := b.MustRegisterStep(id)
			_ = b.OnEvent(src, "Executed").SendEventTo(process.TargetStep(h))
			reg.RegisterStep(id, worker)
		}
		_ = b.BindInputEvent("go").SendEventTo(process.TargetStep(src))

		res, err := NewRunner(b.MustBuild(), reg, Config{Parallel: 2, Logger: quietLogger}).Run(ctx, "go", nil)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(res.Steps).To(gomega.Equal(5))
		gomega.Expect(atomic.LoadInt32(&peak)).To(gomega.BeNumerically("<=", 2))
		gomega.Expect(atomic.LoadInt32(&peak)).To(gomega.BeNumerically(">=", 1))
	})

	ginkgo.It("bounds cyclic graphs with ErrMaxSteps", func() {
		b := process.NewBuilder("loop")
		a := b.MustRegisterStep("a")
		c := b.MustRegisterStep("c")
		_ = b.BindInputEvent("go").SendEventTo(process.TargetStep(a))
		_ = b.OnEvent(a, "Executed").SendEventTo(process.TargetStep(c))
		_ = b.OnEvent(c, "Executed").SendEventTo(process.TargetStep(a))
		reg := NewRegistry().RegisterStep("a", emitExecuted).RegisterStep("c", emitExecuted)

		res, err := NewRunner(b.MustBuild(), reg, Config{MaxSteps: 10, Logger: quietLogger}).Run(ctx, "go", nil)
		gomega.Expect(errors.Is(err, ErrMaxSteps)).To(gomega.BeTrue())
		gomega.Expect(res.Steps).To(gomega.Equal(10))
	})

	ginkgo.It("fails on a routed target without an implementation", func() {
		g, _ := chain("a", "b")
		reg := NewRegistry().RegisterStep("a", emitExecuted)
		gomega.Expect(reg.Missing(g)).To(gomega.Equal([]process.FunctionTarget{{StepID: "b", FunctionName: "Execute"}}))

		_, err := NewRunner(g, reg, Config{Logger: quietLogger}).Run(ctx, "StartProcess", nil)
		gomega.Expect(errors.Is(err, ErrNoFunction)).To(gomega.BeTrue())
	})

	ginkgo.It("wraps step errors and recovers panics", func() {
		boom := errors.New("boom")
		g, _ := chain("a", "b")

		reg := NewRegistry().RegisterStep("a", emitExecuted).
			RegisterStep("b", func(context.Context, Invocation, Emitter) error { return boom })
		_, err := NewRunner(g, reg, Config{Logger: quietLogger}).Run(ctx, "StartProcess", nil)
		gomega.Expect(errors.Is(err, boom)).To(gomega.BeTrue())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("step b"))

		reg.RegisterStep("b", func(context.Context, Invocation, Emitter) error { panic("kaboom") })
		_, err = NewRunner(g, reg, Config{Logger: quietLogger}).Run(ctx, "StartProcess", nil)
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("kaboom")))
	})

	ginkgo.It("surfaces condition failures as dispatch errors", func() {
		b := process.NewBuilder("typed")
		a := b.MustRegisterStep("a")
		c := b.MustRegisterStep("c")
		_ = b.BindInputEvent("go").SendEventTo(process.TargetStep(a))
		_ = b.OnEvent(a, "Executed").When(process.Typed(func(int) bool { return true })).SendEventTo(process.TargetStep(c))
		reg := NewRegistry().RegisterStep("a", emitExecuted).RegisterStep("c", emitExecuted)

		_, err := NewRunner(b.MustBuild(), reg, Config{Logger: quietLogger}).Run(ctx, "go", "text")
		gomega.Expect(errors.Is(err, process.ErrConditionEvaluation)).To(gomega.BeTrue())
	})

	ginkgo.It("stops on context cancellation", func() {
		g, reg := chain("a", "b")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewRunner(g, reg, Config{Logger: quietLogger}).Run(cctx, "StartProcess", nil)
		gomega.Expect(errors.Is(err, context.Canceled)).To(gomega.BeTrue())
	})

	ginkgo.It("journals every dispatch and reports observers", func() {
		g, reg := chain("a", "b")
		j := journal.NewMemJournal()
		trace := &process.TraceCollector{}
		steps := &stepRecorder{}

		res, err := NewRunner(g, reg, Config{Journal: j, Observer: trace, Steps: steps, Logger: quietLogger}).
			Run(ctx, "StartProcess", map[string]any{"n": 1})
		gomega.Expect(err).To(gomega.Succeed())

		run, err := j.GetRun(ctx, res.RunID)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(run.Status).To(gomega.Equal(journal.StatusStopped))
		gomega.Expect(run.Steps).To(gomega.Equal(2))

		recs, err := j.Records(ctx, res.RunID)
		gomega.Expect(err).To(gomega.Succeed())
		gomega.Expect(recs).To(gomega.HaveLen(3))
		gomega.Expect(recs[0].Step).To(gomega.Equal("Start"))
		gomega.Expect(recs[0].Payload).To(gomega.Equal(`{"n":1}`))
		gomega.Expect(recs[0].Targets).To(gomega.Equal([]string{"a.Execute"}))
		gomega.Expect(recs[2].Stop).To(gomega.BeTrue())

		gomega.Expect(trace.EventsOfType(process.EventStop)).To(gomega.HaveLen(1))
		gomega.Expect(steps.events).To(gomega.HaveLen(2))
	})

	ginkgo.It("journals a failed run", func() {
		g, _ := chain("a")
		reg := NewRegistry().RegisterStep("a", func(context.Context, Invocation, Emitter) error { return errors.New("nope") })
		j := journal.NewMemJournal()

		res, err := NewRunner(g, reg, Config{Journal: j, Logger: quietLogger}).Run(ctx, "StartProcess", nil)
		gomega.Expect(err).To(gomega.HaveOccurred())
		run, jerr := j.GetRun(ctx, res.RunID)
		gomega.Expect(jerr).To(gomega.Succeed())
		gomega.Expect(run.Status).To(gomega.Equal(journal.StatusFailed))
		gomega.Expect(run.Error).To(gomega.ContainSubstring("nope"))
	})
})
