package format_test

import (
	"strings"
	"testing"
	"time"

	"procgraph/internal/format"
	"procgraph/internal/journal"
	"procgraph/pkg/process"
)

var positive = process.Labeled(process.Typed(func(v int) bool { return v > 0 }), "payload > 0")

func sampleGraph(t *testing.T) *process.StepGraph {
	t.Helper()
	b := process.NewBuilder("conditional")
	check := b.MustRegisterStep("check", process.WithDisplayName("CheckValue"))
	pos := b.MustRegisterStep("positive", process.WithFunctions("Execute"))
	if err := b.BindInputEvent("StartProcess").SendEventTo(process.TargetStep(check)); err != nil {
		t.Fatal(err)
	}
	if err := b.OnEvent(check, "Executed").When(positive).SendEventTo(process.TargetStep(pos)); err != nil {
		t.Fatal(err)
	}
	if err := b.OnEvent(pos, "Executed").StopProcess(); err != nil {
		t.Fatal(err)
	}
	return b.MustBuild()
}

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Step", "Event")
	tb.Row("check", "Executed")
	out := tb.String()

	if !strings.Contains(strings.ToUpper(out), "STEP") || !strings.Contains(out, "Executed") {
		t.Errorf("missing content:\n%s", out)
	}
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_WithFooter(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Step", "Calls")
	tb.Row("prepare", 1)
	tb.Footer("TOTAL", 1)
	out := tb.String()

	if !strings.Contains(out, "| Step") || !strings.Contains(out, "---") {
		t.Errorf("expected markdown table:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Errorf("expected footer:\n%s", out)
	}
}

func TestCSV(t *testing.T) {
	tb := format.NewTable(format.CSV)
	tb.Header("Step", "Calls")
	tb.Row("prepare", 1)
	tb.Row("work", 2)
	out := tb.String()

	if !strings.Contains(out, "prepare,1\nwork,2") {
		t.Errorf("expected CSV rows:\n%s", out)
	}
	if tb.Len() != 2 {
		t.Errorf("Len = %d, want 2", tb.Len())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want format.Mode
	}{
		{"", format.ASCII},
		{"ascii", format.ASCII},
		{"Markdown", format.Markdown},
		{"md", format.Markdown},
		{"csv", format.CSV},
	}
	for _, tt := range tests {
		got, err := format.ParseMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := format.ParseMode("html"); err == nil {
		t.Error("ParseMode(html) should fail")
	}
	if format.CSV.String() != "csv" {
		t.Errorf("CSV.String() = %q", format.CSV.String())
	}
}

func TestEdgesTable(t *testing.T) {
	out := format.EdgesTable(sampleGraph(t), format.Markdown)
	for _, want := range []string{
		"| Start | StartProcess | check.Execute | - |",
		"| check | Executed | positive.Execute | payload > 0 |",
		"| positive | Executed | (stop) | - |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("EdgesTable missing %q:\n%s", want, out)
		}
	}
}

func TestStepsTable(t *testing.T) {
	out := format.StepsTable(sampleGraph(t), format.Markdown)
	if !strings.Contains(out, "| check | CheckValue | * | * | ✓ |") {
		t.Errorf("StepsTable:\n%s", out)
	}
	if !strings.Contains(out, "| positive | positive | Execute | * | ✗ |") {
		t.Errorf("StepsTable:\n%s", out)
	}
}

func TestResolutionTable(t *testing.T) {
	res, err := process.Resolve(sampleGraph(t), "check", "Executed", 3)
	if err != nil {
		t.Fatal(err)
	}
	out := format.ResolutionTable(res, format.Markdown)
	if !strings.Contains(out, "positive.Execute") {
		t.Errorf("ResolutionTable:\n%s", out)
	}
}

func TestRunsAndRecordsTables(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := []journal.Run{
		{ID: "r1", Process: "simple", InputEvent: "StartProcess", Status: journal.StatusStopped, Steps: 4, StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)},
		{ID: "r2", Process: "simple", InputEvent: "StartProcess", Status: journal.StatusRunning, StartedAt: start},
	}
	out := format.RunsTable(runs, format.ASCII)
	if !strings.Contains(out, "r1") || !strings.Contains(out, "1s") || !strings.Contains(out, "running") {
		t.Errorf("RunsTable:\n%s", out)
	}

	recs := []journal.Record{{RunID: "r1", Seq: 0, Step: "Start", Event: "StartProcess", Targets: []string{"a.Execute", "b.Execute"}}}
	out = format.RecordsTable(recs, format.Markdown)
	if !strings.Contains(out, "a.Execute, b.Execute") {
		t.Errorf("RecordsTable:\n%s", out)
	}
}

func TestHelpers(t *testing.T) {
	if got := format.Truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := format.FmtDuration(250 * time.Millisecond); got != "250ms" {
		t.Errorf("FmtDuration = %q", got)
	}
	if got := format.FmtDuration(75 * time.Second); got != "1m 15s" {
		t.Errorf("FmtDuration = %q", got)
	}
	if format.BoolMark(true) != "✓" || format.BoolMark(false) != "✗" {
		t.Error("BoolMark")
	}
}
