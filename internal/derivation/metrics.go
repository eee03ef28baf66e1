package derivation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts owner scans.
	// Labels: result (success, error, skipped)
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sponsordesk",
			Subsystem: "derivation",
			Name:      "scans_total",
			Help:      "Total number of notification derivation scans",
		},
		[]string{"result"},
	)

	// NotificationsCreated counts stored notifications by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sponsordesk",
			Subsystem: "derivation",
			Name:      "notifications_created_total",
			Help:      "Total number of notifications created by derivation scans",
		},
		[]string{"type"},
	)

	// InsertFailures counts candidates that could not be stored.
	InsertFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sponsordesk",
			Subsystem: "derivation",
			Name:      "insert_failures_total",
			Help:      "Total number of derived notifications that failed to insert",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sponsordesk",
			Subsystem: "derivation",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single owner scan in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
