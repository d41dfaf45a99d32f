// Package metrics collects per-run migration metrics and exports them in the
// Prometheus text format for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "schoolmig"

// Collector is a prometheus.Collector for one migration run. A nil
// *Collector records nothing.
type Collector struct {
	records          *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	validationIssues *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "records_total",
				Help:      "Source records processed, by entity kind and outcome.",
			}, []string{"kind", "outcome"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "phase_duration_seconds",
				Help:      "Time spent in each migration phase.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 300, 1800},
			}, []string{"phase"},
		),
		validationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "validation_issues_total",
				Help:      "Validation errors and warnings, by stage and severity.",
			}, []string{"stage", "severity"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.records.Describe(ch)
	c.phaseDuration.Describe(ch)
	c.validationIssues.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.records.Collect(ch)
	c.phaseDuration.Collect(ch)
	c.validationIssues.Collect(ch)
}

// Record counts one record outcome.
func (c *Collector) Record(kind, outcome string) {
	if c == nil {
		return
	}
	c.records.WithLabelValues(kind, outcome).Inc()
}

// ObservePhase records how long a phase took.
func (c *Collector) ObservePhase(phase string, d time.Duration) {
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Issues adds validation errors and warnings found at a stage
// ("preflight", "postflight", "session").
func (c *Collector) Issues(stage string, errors, warnings int) {
	if c == nil {
		return
	}
	c.validationIssues.WithLabelValues(stage, "error").Add(float64(errors))
	c.validationIssues.WithLabelValues(stage, "warning").Add(float64(warnings))
}

// WriteTextfile writes the collected metrics to path, atomically replacing
// any previous file.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	r := prometheus.NewRegistry()
	if err := r.Register(c); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
