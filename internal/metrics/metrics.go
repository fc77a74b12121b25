// Package metrics declares the Prometheus collectors shared by the decoder,
// the migration runner, and the record stores. Collectors register with the
// default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "propmig"

var (
	// RecordsDecoded counts property lists decoded generically, by outcome
	// ("complete" or "truncated").
	RecordsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_decoded_total",
		Help:      "Property lists decoded into a property tree, by outcome",
	}, []string{"outcome"})

	// UnknownTags counts fields skipped because their type tag is not known.
	UnknownTags = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unknown_tags_total",
		Help:      "Fields with an unrecognized type tag, by tag",
	}, []string{"kind"})

	// DecodeDuration observes how long a generic decode took.
	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "decode_duration_seconds",
		Help:      "Time to decode one property list",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	// Migrations counts migration scope outcomes by class and result
	// ("migrated", "current", "degraded", "error").
	Migrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migrations_total",
		Help:      "Migration scope outcomes, by class and result",
	}, []string{"class", "result"})

	// RunnerDuration observes batch migration runs.
	RunnerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "runner_duration_seconds",
		Help:      "Time to migrate one record store",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"backend"})

	// StoreOps counts record store operations by backend, op and status.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Record store operations, by backend, op and status",
	}, []string{"backend", "op", "status"})
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
