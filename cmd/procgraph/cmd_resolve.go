package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"procgraph/internal/format"
	"procgraph/internal/host"
	"procgraph/pkg/process"
)

var resolveFlags struct {
	source  graphSource
	step    string
	event   string
	payload string
	table   string
	trace   bool
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show where an emitted event is routed",
	Long: `Resolve an event emitted by a step against the process edges and print
the accepted routes. Without --step the event is resolved as an input event.

Examples:
  procgraph resolve --sample conditional --step CheckValueStep --event CheckValueStep_Executed --payload 5
  procgraph resolve -f approval.yaml --step Intake --event Received --payload '{"amount": 40}'`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveFlags.source.register(resolveCmd)
	f := resolveCmd.Flags()
	f.StringVar(&resolveFlags.step, "step", string(process.StartStepID), "Emitting step ID")
	f.StringVar(&resolveFlags.event, "event", "", "Emitted event name (required)")
	f.StringVar(&resolveFlags.payload, "payload", "", "Event payload as JSON")
	formatFlag(resolveCmd, &resolveFlags.table)
	f.BoolVar(&resolveFlags.trace, "trace", false, "Also print every edge evaluation")
	_ = resolveCmd.MarkFlagRequired("event")
}

func runResolve(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(resolveFlags.table)
	if err != nil {
		return err
	}
	l, err := resolveFlags.source.load()
	if err != nil {
		return err
	}
	payload, err := host.DecodePayload(resolveFlags.payload)
	if err != nil {
		return err
	}

	var trace process.TraceCollector
	d := process.NewDispatcher(l.graph, process.WithDispatchObserver(&trace))
	res, err := d.Resolve(process.StepID(resolveFlags.step), resolveFlags.event, payload)
	if err != nil {
		return fmt.Errorf("resolve %s/%s: %w", resolveFlags.step, resolveFlags.event, err)
	}

	out := cmd.OutOrStdout()
	if resolveFlags.trace {
		for _, e := range trace.Events() {
			target := "-"
			if e.Target.StepID != "" {
				target = e.Target.String()
			}
			fmt.Fprintf(out, "%-15s edge=%d target=%s\n", e.Type, e.Edge, target)
		}
	}
	if res.Empty() {
		fmt.Fprintf(out, "%s/%s: no matching edge, event dropped\n", res.Step, res.Event)
		return nil
	}
	fmt.Fprintln(out, format.ResolutionTable(res, mode))
	if res.Stop() {
		fmt.Fprintln(out, "process stops")
	}
	return nil
}
