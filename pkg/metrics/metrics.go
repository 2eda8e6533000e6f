// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folio"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// 自定义注册表，避免暴露默认的 go/process 指标
var registry = prometheus.NewRegistry()

var (
	// ExtractionsTotal counts archive ingestions by role and result.
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_extractions_total",
			Help:      "Number of archive ingestions by role and result",
		},
		[]string{"role", "result"},
	)

	ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_extraction_duration_seconds",
			Help:      "Time spent retaining, extracting and indexing one archive",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"role"},
	)

	// CleanupFailuresTotal counts removal steps that failed while deleting a project.
	CleanupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Failed filesystem removals during project deletion",
		},
		[]string{"target"},
	)

	SweeperRemovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_removals_total",
			Help:      "Orphaned artifacts removed by the sweeper",
		},
		[]string{"kind"},
	)

	WriterTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writer_timeouts_total",
			Help:      "Serialized project writes that outlived the pipeline timeout",
		},
	)
)

//nolint:gochecknoinits // collectors must be registered before the first scrape
func init() {
	registry.MustRegister(
		ExtractionsTotal,
		ExtractionDuration,
		CleanupFailuresTotal,
		SweeperRemovalsTotal,
		WriterTimeoutsTotal,
	)
}

// Registry exposes the custom registry, mainly for tests.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
