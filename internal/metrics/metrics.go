// Package metrics exposes build, run and test counters for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coderun"

// Recorder owns a private registry so several engines (and tests) never
// collide on registration.
type Recorder struct {
	registry    *prometheus.Registry
	builds      *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	testCases   *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Builds by language and result.",
		}, []string{"language", "result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by language and result.",
		}, []string{"language", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"language"}),
		testCases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_cases_total",
			Help:      "Test cases by verdict.",
		}, []string{"verdict"}),
	}
	r.registry.MustRegister(r.builds, r.runs, r.runDuration, r.testCases)
	return r
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Build counts one finished build.
func (r *Recorder) Build(lang string, ok bool) {
	r.builds.WithLabelValues(lang, result(ok)).Inc()
}

// Run counts one finished run and observes its wall time.
func (r *Recorder) Run(lang string, ok bool, seconds float64) {
	r.runs.WithLabelValues(lang, result(ok)).Inc()
	r.runDuration.WithLabelValues(lang).Observe(seconds)
}

// TestCase counts one scored test case.
func (r *Recorder) TestCase(verdict string) {
	r.testCases.WithLabelValues(verdict).Inc()
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
