// Package metrics defines the Prometheus metric collectors used by the
// vocabulary pipeline, exposes an HTTP handler for scraping and pushes the
// final values of a batch run to a Pushgateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	LinesProcessedTotal prometheus.Counter
	FilesAggregated     *prometheus.CounterVec
	FileDuration        prometheus.Histogram
	WorkerTimeoutsTotal prometheus.Counter
	RunDuration         *prometheus.HistogramVec
	DistinctWords       prometheus.Gauge
	VocabularySize      prometheus.Gauge
	SinkWritesTotal     *prometheus.CounterVec
}

// New creates all collectors and registers them on a private registry so
// that several pipelines (and tests) can coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LinesProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vocab_lines_processed_total",
				Help: "Total number of input lines decoded and counted.",
			},
		),
		FilesAggregated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_files_aggregated_total",
				Help: "Input files aggregated, by status (ok, parse_error, error).",
			},
			[]string{"status"},
		),
		FileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vocab_file_duration_seconds",
				Help:    "Time spent aggregating a single input file.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		WorkerTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vocab_worker_timeouts_total",
				Help: "Worker results not collected within the result timeout.",
			},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vocab_run_duration_seconds",
				Help:    "Duration of a full build run, by outcome.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
			},
			[]string{"outcome"},
		),
		DistinctWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vocab_distinct_words",
				Help: "Distinct words in the last global frequency table.",
			},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vocab_index_size",
				Help: "Entries in the last built vocabulary index.",
			},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vocab_sink_writes_total",
				Help: "Index publications to external sinks, by sink and status.",
			},
			[]string{"sink", "status"},
		),
	}

	m.registry.MustRegister(
		m.LinesProcessedTotal,
		m.FilesAggregated,
		m.FileDuration,
		m.WorkerTimeoutsTotal,
		m.RunDuration,
		m.DistinctWords,
		m.VocabularySize,
		m.SinkWritesTotal,
	)

	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler for these metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Pushgateway under the given job.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.registry).Push()
}
