package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphd_ingested_records_total",
		Help: "Records stored by batch ingestion, by kind.",
	}, []string{"kind"})

	IngestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphd_ingest_failures_total",
		Help: "Records rejected during batch ingestion, by kind.",
	}, []string{"kind"})

	CleanupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphd_cleanup_duration_seconds",
		Help:    "Duration of a full retention pass.",
		Buckets: prometheus.DefBuckets,
	})

	CleanupAffected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "graphd_cleanup_affected_total",
		Help: "Rows affected by executed cleanup rules, by rule and action.",
	}, []string{"rule", "action"})
)

// MustRegister registers all graphd collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		IngestedRecords,
		IngestFailures,
		CleanupDuration,
		CleanupAffected,
	)
}
