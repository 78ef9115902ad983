// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch status label values.
const (
	StatusOK    = "ok"
	StatusEmpty = "empty"
	StatusError = "error"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Source loading
	SourcesLoaded     prometheus.Gauge
	SourceLoadFailure *prometheus.CounterVec
	SourceLoadLatency *prometheus.HistogramVec

	// Per-source fetches
	SourceFetches      *prometheus.CounterVec
	SourceRowsFetched  *prometheus.CounterVec
	SourceFetchLatency *prometheus.HistogramVec

	// GetSwaps calls
	CallsTotal    *prometheus.CounterVec
	CallDuration  prometheus.Histogram
	RowsReturned  prometheus.Counter
	RowsArchived  *prometheus.CounterVec
	ArchiveErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "dex_swaps_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SourcesLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "sources_loaded",
			Help:      "Number of sources whose schema resolved successfully",
		}),
		SourceLoadFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "load_failures_total",
			Help:      "Total number of source schema resolution failures",
		}, []string{"source"}),
		SourceLoadLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "load_latency_seconds",
			Help:      "Schema resolution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		SourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "fetches_total",
			Help:      "Total number of per-source swap fetches by status",
		}, []string{"source", "status"}),
		SourceRowsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "rows_fetched_total",
			Help:      "Total number of raw swap rows fetched per source",
		}, []string{"source"}),
		SourceFetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetcher",
			Name:      "fetch_latency_seconds",
			Help:      "Per-source swap fetch latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),

		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "calls_total",
			Help:      "Total number of GetSwaps calls by status",
		}, []string{"status"}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "call_duration_seconds",
			Help:      "GetSwaps duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120},
		}),
		RowsReturned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "rows_returned_total",
			Help:      "Total number of canonical rows returned",
		}),
		RowsArchived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "rows_archived_total",
			Help:      "Total number of canonical rows written to an archive store",
		}, []string{"store"}),
		ArchiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of archive write failures",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of gatherer.
// A nil gatherer serves the default registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordSourcesLoaded sets the loaded source gauge.
func (m *Metrics) RecordSourcesLoaded(n int) {
	if m == nil {
		return
	}
	m.SourcesLoaded.Set(float64(n))
}

// RecordLoad records one schema resolution attempt.
func (m *Metrics) RecordLoad(source string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SourceLoadLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		m.SourceLoadFailure.WithLabelValues(source).Inc()
	}
}

// RecordFetch records one per-source fetch outcome.
func (m *Metrics) RecordFetch(source string, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.SourceFetchLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	switch {
	case err != nil:
		m.SourceFetches.WithLabelValues(source, StatusError).Inc()
	case rows == 0:
		m.SourceFetches.WithLabelValues(source, StatusEmpty).Inc()
	default:
		m.SourceFetches.WithLabelValues(source, StatusOK).Inc()
		m.SourceRowsFetched.WithLabelValues(source).Add(float64(rows))
	}
}

// RecordCall records one GetSwaps call.
func (m *Metrics) RecordCall(rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.CallDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.CallsTotal.WithLabelValues(StatusError).Inc()
		return
	}
	m.CallsTotal.WithLabelValues(StatusOK).Inc()
	m.RowsReturned.Add(float64(rows))
}

// RecordArchive records one archive write.
func (m *Metrics) RecordArchive(store string, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ArchiveErrors.WithLabelValues(store).Inc()
		return
	}
	m.RowsArchived.WithLabelValues(store).Add(float64(rows))
}
