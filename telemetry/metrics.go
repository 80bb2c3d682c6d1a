package telemetry

import (
	"github.com/adqa/browser-test-harness/framework"
	"github.com/adqa/browser-test-harness/framework/bttest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run metrics. They are registered on their own registry, since the harness is a
// short-lived process: the registry is written out to a file at the end of the run for the node
// exporter's textfile collector, rather than served.
type Metrics struct {
	Registry *prometheus.Registry

	EngineRuns      *prometheus.CounterVec
	EngineFailures  *prometheus.CounterVec
	EngineSkipped   *prometheus.CounterVec
	ScenarioSeconds *prometheus.HistogramVec
	LastRunSuccess  prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		EngineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "browser_test",
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Number of scenario runs, by engine and status",
			},
			[]string{"scenario", "engine", "status"},
		),
		EngineFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "browser_test",
				Subsystem: "engine",
				Name:      "failures_total",
				Help:      "Number of failed scenario runs, by engine and failure kind",
			},
			[]string{"scenario", "engine", "kind"},
		),
		EngineSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "browser_test",
				Subsystem: "engine",
				Name:      "skipped_total",
				Help:      "Number of times an engine could not be started",
			},
			[]string{"engine"},
		),
		ScenarioSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "browser_test",
				Subsystem: "scenario",
				Name:      "duration_seconds",
				Help:      "Time taken by one scenario run against one engine",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1m
			},
			[]string{"scenario", "engine"},
		),
		LastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "browser_test",
				Name:      "last_run_success",
				Help:      "1 if every engine passed in the last run, otherwise 0",
			},
		),
	}
}

// WriteFile writes the current values in the Prometheus text format, replacing the file atomically.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Reporter returns a bttest.Reporter that updates the metrics.
func (m *Metrics) Reporter() bttest.Reporter {
	return metricsReporter{m}
}

type metricsReporter struct {
	m *Metrics
}

func (r metricsReporter) EngineStarted(string)      {}
func (r metricsReporter) EngineError(string, error) {}

func (r metricsReporter) EngineFinished(o bttest.Outcome, _ framework.CapturedOutput) {
	r.m.EngineRuns.WithLabelValues(o.Scenario, o.Engine, string(o.Status)).Inc()
	r.m.ScenarioSeconds.WithLabelValues(o.Scenario, o.Engine).Observe(o.Duration().Seconds())
	if o.Failure.IsDefined() {
		r.m.EngineFailures.WithLabelValues(o.Scenario, o.Engine, string(o.Failure.Value().Kind)).Inc()
	}
}

func (r metricsReporter) EngineSkipped(engine string, _ string) {
	r.m.EngineSkipped.WithLabelValues(engine).Inc()
}

func (r metricsReporter) EndRun(outcomes []bttest.Outcome) error {
	if bttest.AllPassed(outcomes) {
		r.m.LastRunSuccess.Set(1)
	} else {
		r.m.LastRunSuccess.Set(0)
	}
	return nil
}
