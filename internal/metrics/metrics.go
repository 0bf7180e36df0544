// Package metrics provides Prometheus instrumentation for the scheduler,
// crawler ingesters and search server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the process reports. All
// collectors are registered with the default registry via promauto at
// construction time.
type Metrics struct {
	IngesterRunsTotal       *prometheus.CounterVec
	IngesterRunDuration     *prometheus.HistogramVec
	IngesterPagesIndexed    *prometheus.CounterVec
	IngesterLastSuccess     *prometheus.GaugeVec
	SearchQueriesTotal      prometheus.Counter
	SearchQueryDuration     prometheus.Histogram
	StoreTermCount          prometheus.Gauge
	CircuitBreakerOpenTotal *prometheus.CounterVec
}

// New creates and registers the full metrics set.
func New() *Metrics {
	return &Metrics{
		IngesterRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ceridwen_ingester_runs_total",
			Help: "Total number of ingester runs by target name and status (success/failure)",
		}, []string{"target", "status"}),

		IngesterRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ceridwen_ingester_run_duration_seconds",
			Help:    "Duration of ingester runs in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}, []string{"target"}),

		IngesterPagesIndexed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ceridwen_ingester_pages_indexed_total",
			Help: "Total number of pages indexed per target",
		}, []string{"target"}),

		IngesterLastSuccess: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ceridwen_ingester_last_success_timestamp",
			Help: "Unix timestamp of the last successful run, per target",
		}, []string{"target"}),

		SearchQueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ceridwen_search_queries_total",
			Help: "Total number of search queries served",
		}),

		SearchQueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ceridwen_search_query_duration_seconds",
			Help:    "Duration of search query resolution in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		StoreTermCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ceridwen_store_indexed_pages",
			Help: "Gauge updated after each ingester run with the store's page count",
		}),

		CircuitBreakerOpenTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ceridwen_circuit_breaker_open_total",
			Help: "Total number of times a named circuit breaker tripped open",
		}, []string{"breaker"}),
	}
}

// RecordIngesterRun records the outcome of a single ingester run.
func (m *Metrics) RecordIngesterRun(target, status string, seconds float64, pagesIndexed int) {
	m.IngesterRunsTotal.WithLabelValues(target, status).Inc()
	m.IngesterRunDuration.WithLabelValues(target).Observe(seconds)
	if status == "success" {
		m.IngesterPagesIndexed.WithLabelValues(target).Add(float64(pagesIndexed))
		m.IngesterLastSuccess.WithLabelValues(target).SetToCurrentTime()
	}
}

// RecordSearch records a served search query.
func (m *Metrics) RecordSearch(seconds float64) {
	m.SearchQueriesTotal.Inc()
	m.SearchQueryDuration.Observe(seconds)
}
