package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholar_enrollment_reconcile_total",
		Help: "Enrollment reconciliations by outcome",
	}, []string{"outcome"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scholar_enrollment_reconcile_duration_seconds",
		Help:    "Time spent reconciling one enrollment, lock wait included",
		Buckets: prometheus.DefBuckets,
	})

	reconcileLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scholar_enrollment_reconcile_lock_wait_seconds",
		Help:    "Time spent waiting for the per-enrollment lock",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})

	enrollmentCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_enrollment_completed_total",
		Help: "Enrollments stamped as completed",
	})

	identityProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scholar_identity_accounts_provisioned_total",
		Help: "Local accounts created from external identity tokens",
	})
)
