package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	VisitsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmark_visits_recorded_total",
			Help: "Visits written to the ledger.",
		},
		[]string{"source"}, // click, history, force, manual
	)

	MarksApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmark_marks_applied_total",
			Help: "Anchors classified and marked.",
		},
		[]string{"tier"},
	)

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmark_sweeps_total",
			Help: "Marking sweeps performed.",
		},
		[]string{"kind"}, // full, incremental
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkmark_sweep_duration_seconds",
			Help:    "Duration of marking sweeps.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"kind"},
	)

	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmark_messages_total",
			Help: "Cross-surface messages routed to page engines.",
		},
		[]string{"type", "status"},
	)

	LedgerPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkmark_ledger_purged_total",
			Help: "Ledger entries removed by retention cleanup.",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linkmark_active_sessions",
			Help: "Page sessions currently open.",
		},
	)
)
