package samples

import (
	"io"

	"procgraph/internal/host"
	"procgraph/pkg/process"
)

// singleFunction registers a step with one Execute function and one
// Executed event.
func singleFunction(b *process.Builder, id process.StepID) (process.StepHandle, error) {
	return b.RegisterStep(id,
		process.WithFunctions(process.DefaultFunctionName),
		process.WithOutputEvents(executed(id)),
	)
}

func linear(name string, ids ...process.StepID) (*process.StepGraph, error) {
	b := process.NewBuilder(name)
	handles := make([]process.StepHandle, 0, len(ids))
	for _, id := range ids {
		h, err := singleFunction(b, id)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}

	if err := b.BindInputEvent(StartProcess).SendEventTo(process.TargetStep(handles[0])); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(handles); i++ {
		if err := b.OnEvent(handles[i], executed(ids[i])).SendEventTo(process.TargetStep(handles[i+1])); err != nil {
			return nil, err
		}
	}
	last := len(handles) - 1
	if err := b.OnEvent(handles[last], executed(ids[last])).StopProcess(); err != nil {
		return nil, err
	}
	return b.Build()
}

const (
	StartStep      process.StepID = "StartStep"
	DoSomeWorkStep process.StepID = "DoSomeWorkStep"
	DoMoreWorkStep process.StepID = "DoMoreWorkStep"
	EndStep        process.StepID = "EndStep"
)

// SimplestProcess chains StartStep, DoSomeWorkStep, DoMoreWorkStep and
// EndStep, and stops after EndStep.
func SimplestProcess() (*process.StepGraph, error) {
	return linear("SimplestProcess", StartStep, DoSomeWorkStep, DoMoreWorkStep, EndStep)
}

func simplestSteps(w io.Writer, _ *process.StepGraph) *host.Registry {
	return host.NewRegistry().
		RegisterStep(StartStep, say(w, "Step 1 - Start")).
		RegisterStep(DoSomeWorkStep, say(w, "Step 2 - Doing Some Work...")).
		RegisterStep(DoMoreWorkStep, say(w, "Step 3 - Doing Yet More Work...")).
		RegisterStep(EndStep, say(w, "Step 4 - This is the Final Step..."))
}

const (
	StartProcessStep process.StepID = "StartProcessStep"
	PrepareStep      process.StepID = "PrepareStep"
	DoingWorkStep    process.StepID = "DoingWorkStep"
	FinishingStep    process.StepID = "FinishingStep"
)

// SimpleProcess chains StartProcessStep, PrepareStep, DoingWorkStep and
// FinishingStep, and stops after FinishingStep.
func SimpleProcess() (*process.StepGraph, error) {
	return linear("SimpleProcess", StartProcessStep, PrepareStep, DoingWorkStep, FinishingStep)
}

func simpleSteps(w io.Writer, _ *process.StepGraph) *host.Registry {
	return host.NewRegistry().
		RegisterStep(StartProcessStep, say(w, "start")).
		RegisterStep(PrepareStep, say(w, "preparing")).
		RegisterStep(DoingWorkStep, say(w, "doing work")).
		RegisterStep(FinishingStep, say(w, "finishing"))
}

const (
	CheckValueStep process.StepID = "CheckValueStep"
	PositiveStep   process.StepID = "PositiveStep"
	NegativeStep   process.StepID = "NegativeStep"
)

// ConditionalProcess routes the checked value to PositiveStep when it is
// greater than zero and to NegativeStep otherwise. Both stop the process.
func ConditionalProcess() (*process.StepGraph, error) {
	b := process.NewBuilder("ConditionalProcess")
	check, err := singleFunction(b, CheckValueStep)
	if err != nil {
		return nil, err
	}
	pos, err := singleFunction(b, PositiveStep)
	if err != nil {
		return nil, err
	}
	neg, err := singleFunction(b, NegativeStep)
	if err != nil {
		return nil, err
	}

	if err := b.BindInputEvent(StartProcess).SendEventTo(process.TargetStep(check)); err != nil {
		return nil, err
	}
	isPositive := process.Labeled(process.Typed(func(v int) bool { return v > 0 }), "value > 0")
	notPositive := process.Labeled(process.Typed(func(v int) bool { return v <= 0 }), "value <= 0")
	if err := b.OnEvent(check, executed(CheckValueStep)).When(isPositive).SendEventTo(process.TargetStep(pos)); err != nil {
		return nil, err
	}
	if err := b.OnEvent(check, executed(CheckValueStep)).When(notPositive).SendEventTo(process.TargetStep(neg)); err != nil {
		return nil, err
	}
	if err := b.OnEvent(pos, executed(PositiveStep)).StopProcess(); err != nil {
		return nil, err
	}
	if err := b.OnEvent(neg, executed(NegativeStep)).StopProcess(); err != nil {
		return nil, err
	}
	return b.Build()
}

func conditionalSteps(w io.Writer, _ *process.StepGraph) *host.Registry {
	return host.NewRegistry().
		RegisterStep(CheckValueStep, checkValue(w)).
		RegisterStep(PositiveStep, say(w, "Value is positive.")).
		RegisterStep(NegativeStep, say(w, "Value is negative or zero."))
}
