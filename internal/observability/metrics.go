// Package observability holds the Prometheus metrics for the dashboard.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "trafficdash"

// Metrics holds the counters, histograms and gauges for the dashboard. Each instance owns
// its registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	DatasetRows     prometheus.Gauge
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss}
	Evaluations     prometheus.Counter
	EmptySelections prometheus.Counter

	EvaluationDuration prometheus.Histogram
	ChartRenders       *prometheus.CounterVec // labels: chart, outcome={rendered,placeholder,error}
}

// NewMetrics creates all dashboard metrics and registers them, plus the Go and process
// collectors, with a new registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// NewMetricsForTesting creates Metrics without the runtime collectors
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the loaded traffic dataset.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_cache_lookups_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Dashboard pipeline evaluations.",
		}),
		EmptySelections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_selections_total",
			Help:      "Evaluations whose selection matched no rows.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one filter and aggregate pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart renders by chart and outcome.",
		}, []string{"chart", "outcome"}),
	}

	m.Registry.MustRegister(
		m.DatasetRows,
		m.CacheLookups,
		m.Evaluations,
		m.EmptySelections,
		m.EvaluationDuration,
		m.ChartRenders,
	)

	return m
}

// ObserveCacheLookup records a dataset cache hit or miss
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveDatasetLoaded sets the dataset size gauge
func (m *Metrics) ObserveDatasetLoaded(rows int) {
	m.DatasetRows.Set(float64(rows))
}

// ObserveEvaluation records one pipeline run
func (m *Metrics) ObserveEvaluation(d time.Duration, empty bool) {
	m.Evaluations.Inc()
	m.EvaluationDuration.Observe(d.Seconds())
	if empty {
		m.EmptySelections.Inc()
	}
}

// ObserveChartRender records the outcome of rendering one chart
func (m *Metrics) ObserveChartRender(chart, outcome string) {
	m.ChartRenders.WithLabelValues(chart, outcome).Inc()
}
