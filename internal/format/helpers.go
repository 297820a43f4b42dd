package format

import (
	"fmt"
	"strings"
	"time"

	"procgraph/internal/journal"
	"procgraph/pkg/process"
)

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}

// FmtDuration formats a duration as "Xm Ys", "Ys" or "Xms".
func FmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

func conditionText(e process.Edge) string {
	if c := e.Condition(); c != nil {
		return c.String()
	}
	return "-"
}

func targetText(t process.FunctionTarget) string {
	if t.IsStop() {
		return "(stop)"
	}
	return t.String()
}

// EdgesTable lists the input bindings followed by every step edge, in
// dispatch order.
func EdgesTable(g *process.StepGraph, m Mode) string {
	tb := NewTable(m)
	tb.Header("Source", "Event", "Target", "Condition")
	n := 0
	for _, ev := range g.InputEvents() {
		for _, e := range g.InputEdges(ev) {
			tb.Row(process.StartStepID, ev, targetText(e.OutputTarget()), conditionText(e))
			n++
		}
	}
	for _, s := range g.Steps() {
		for _, ev := range g.Events(s.ID) {
			for _, e := range g.EdgesFor(s.ID, ev) {
				tb.Row(s.ID, ev, targetText(e.OutputTarget()), conditionText(e))
				n++
			}
		}
	}
	tb.Footer("", "", "EDGES", n)
	tb.Columns(ColumnConfig{Number: 4, MaxWidth: 40})
	return tb.String()
}

// StepsTable lists registered steps with their declared tables.
func StepsTable(g *process.StepGraph, m Mode) string {
	tb := NewTable(m)
	tb.Header("ID", "Name", "Functions", "Events", "Entry")
	for _, s := range g.Steps() {
		tb.Row(s.ID, s.DisplayName(), listOrAny(s.Functions), listOrAny(s.OutputEvents), BoolMark(!g.HasIncoming(s.ID)))
	}
	return tb.String()
}

// ResolutionTable lists the routes of a resolution.
func ResolutionTable(res process.Resolution, m Mode) string {
	tb := NewTable(m)
	tb.Header("#", "Target", "Condition", "Stop")
	for i, rt := range res.Routes {
		tb.Row(i, targetText(rt.Target), conditionText(rt.Edge), BoolMark(rt.Stop))
	}
	return tb.String()
}

// RunsTable lists journaled runs.
func RunsTable(runs []journal.Run, m Mode) string {
	tb := NewTable(m)
	tb.Header("Run", "Process", "Input", "Status", "Steps", "Duration", "Error")
	for _, r := range runs {
		dur := "-"
		if !r.EndedAt.IsZero() {
			dur = FmtDuration(r.EndedAt.Sub(r.StartedAt))
		}
		tb.Row(r.ID, r.Process, r.InputEvent, r.Status, r.Steps, dur, Truncate(r.Error, 50))
	}
	tb.Columns(ColumnConfig{Number: 5, Align: AlignRight})
	return tb.String()
}

// RecordsTable lists the dispatch records of one run.
func RecordsTable(recs []journal.Record, m Mode) string {
	tb := NewTable(m)
	tb.Header("Seq", "Step", "Event", "Payload", "Targets", "Stop", "Error")
	for _, r := range recs {
		tb.Row(r.Seq, r.Step, r.Event, Truncate(r.Payload, 30), strings.Join(r.Targets, ", "), BoolMark(r.Stop), Truncate(r.Error, 50))
	}
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight})
	return tb.String()
}

func listOrAny(s []string) string {
	if len(s) == 0 {
		return "*"
	}
	return strings.Join(s, ", ")
}
