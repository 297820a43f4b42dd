// Package metrics exposes dispatch and step counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"procgraph/internal/host"
	"procgraph/pkg/process"
)

// Collector records dispatch events and step invocations for one process.
// It implements process.DispatchObserver and host.StepObserver.
type Collector struct {
	process  string
	registry *prometheus.Registry

	dispatches *prometheus.CounterVec
	steps      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers the procgraph metrics on a fresh registry.
func New(processName string) *Collector {
	c := &Collector{
		process:  processName,
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procgraph_dispatch_events_total",
			Help: "Dispatch observations by type.",
		}, []string{"process", "type"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "procgraph_step_invocations_total",
			Help: "Step function invocations by outcome.",
		}, []string{"process", "step", "function", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "procgraph_step_duration_seconds",
			Help:    "Step function latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"process", "step"}),
	}
	c.registry.MustRegister(c.dispatches, c.steps, c.duration)
	return c
}

func (c *Collector) OnDispatch(e process.DispatchEvent) {
	c.dispatches.WithLabelValues(c.process, string(e.Type)).Inc()
}

func (c *Collector) OnStep(e host.StepEvent) {
	outcome := "ok"
	if e.Err != nil {
		outcome = "error"
	}
	step := string(e.Target.StepID)
	c.steps.WithLabelValues(c.process, step, e.Target.FunctionName, outcome).Inc()
	c.duration.WithLabelValues(c.process, step).Observe(e.Duration.Seconds())
}

// Registry returns the underlying registry, e.g. for testutil gathering.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
