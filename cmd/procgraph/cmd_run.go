package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"procgraph/internal/host"
	"procgraph/internal/journal"
	"procgraph/internal/logging"
	"procgraph/internal/metrics"
)

var runFlags struct {
	source      graphSource
	event       string
	payload     string
	journalPath string
	noJournal   bool
	parallel    int
	maxSteps    int
	metricsAddr string
	metricsFile string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a process to completion with the local host runtime",
	Long: `Run a built-in sample or a YAML definition. Sample steps print their
progress; steps of a YAML definition forward their payload on the first
declared event.

Every dispatch is recorded in the run journal (SQLite, default
$PROCGRAPH_JOURNAL or .procgraph/journal.db); see 'procgraph history'.

Examples:
  procgraph run --sample conditional --payload 7
  procgraph run -f approval.yaml --payload '{"amount": 40}'
  procgraph run --sample approval --metrics-file run.prom`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runFlags.source.register(runCmd)
	f := runCmd.Flags()
	f.StringVar(&runFlags.event, "event", "", "Input event (default: the process's first input event)")
	f.StringVar(&runFlags.payload, "payload", "", "Input payload as JSON (default: the sample's payload)")
	f.StringVar(&runFlags.journalPath, "journal", envOr("PROCGRAPH_JOURNAL", journal.DefaultPath), "Run journal path")
	f.BoolVar(&runFlags.noJournal, "no-journal", false, "Keep the journal in memory only")
	f.IntVar(&runFlags.parallel, "parallel", host.DefaultParallel, "Max concurrent step invocations per dispatch")
	f.IntVar(&runFlags.maxSteps, "max-steps", host.DefaultMaxSteps, "Max step invocations per run")
	f.StringVar(&runFlags.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address while the run is active (e.g. :9090)")
	f.StringVar(&runFlags.metricsFile, "metrics-file", "", "Write the run's metrics in Prometheus text format to this file")
}

func runRun(cmd *cobra.Command, _ []string) error {
	logger := logging.New("run")
	l, err := runFlags.source.load()
	if err != nil {
		return err
	}

	event := runFlags.event
	if event == "" {
		event = l.inputEvent
	}
	if event == "" {
		return fmt.Errorf("%s has no input binding; pass --event", l.graph.Name())
	}
	payload := l.payload
	if runFlags.payload != "" {
		if payload, err = host.DecodePayload(runFlags.payload); err != nil {
			return err
		}
	}

	var j journal.Journal
	if runFlags.noJournal {
		j = journal.NewMemJournal()
	} else {
		sj, err := journal.Open(runFlags.journalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		j = sj
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	reg := l.steps(out, l.graph)
	if missing := reg.Missing(l.graph); len(missing) > 0 {
		return fmt.Errorf("%w: %v", host.ErrNoFunction, missing)
	}

	collector := metrics.New(l.graph.Name())
	if runFlags.metricsAddr != "" {
		stop, err := serveMetrics(runFlags.metricsAddr, collector.Handler())
		if err != nil {
			return err
		}
		defer stop()
		logger.Info("serving metrics", "addr", runFlags.metricsAddr)
	}

	runner := host.NewRunner(l.graph, reg, host.Config{
		Parallel: runFlags.parallel,
		MaxSteps: runFlags.maxSteps,
		Journal:  j,
		Observer: collector,
		Steps:    collector,
		Logger:   logger,
	})
	res, runErr := runner.Run(cmd.Context(), event, payload)

	if runFlags.metricsFile != "" {
		if err := prometheus.WriteToTextfile(runFlags.metricsFile, collector.Registry()); err != nil {
			logger.Warn("write metrics file", "path", runFlags.metricsFile, "error", err)
		}
	}
	if res == nil {
		return runErr
	}

	fmt.Fprintf(out, "\nrun %s: %s (%d steps)\n", res.RunID, res.Status(runErr), res.Steps)
	if runErr != nil {
		return fmt.Errorf("run %s: %w", res.RunID, runErr)
	}
	return nil
}

// serveMetrics starts an HTTP server exposing /metrics and returns a
// function that shuts it down.
func serveMetrics(addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.New("run").Warn("metrics server", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
