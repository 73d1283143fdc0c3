// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the DRM session manager,
// the curl connection store, the scheduler and the event manager.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Circuit breaker metrics (license-server resilience).

	circuitBreakerStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drmcore_circuit_breaker_status",
		Help: "Circuit breaker state as an integer (0=closed, 1=open, 2=half-open).",
	}, []string{"name"})

	circuitBreakerStateInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drmcore_circuit_breaker_state_info",
		Help: "Circuit breaker current state, one active series per breaker (value always 1).",
	}, []string{"name", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips into the open state, by reason.",
	}, []string{"name", "reason"})

	// DRM session manager metrics.

	SessionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_drm_sessions_created_total",
		Help: "Total number of DRM sessions created, by scheme.",
	}, []string{"scheme"})

	SessionsReusedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_drm_sessions_reused_total",
		Help: "Total number of DRM session slot reuses (concurrent tune dedup), by scheme.",
	}, []string{"scheme"})

	SessionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_drm_session_failures_total",
		Help: "Total number of DRM session failures, by error code.",
	}, []string{"code"})

	LicenseRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drmcore_license_request_duration_seconds",
		Help:    "Duration of license-server HTTP requests per attempt.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
	}, []string{"scheme", "attempt"})

	LicenseRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_license_retries_total",
		Help: "Total number of license-request retries, by scheme.",
	}, []string{"scheme"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_access_token_refresh_total",
		Help: "Total number of access-token refreshes triggered by a 412/401 combo.",
	}, []string{"outcome"})

	SlotsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drmcore_drm_slots_in_use",
		Help: "Current number of occupied DRM session slots.",
	})

	// Curl connection store metrics.

	CurlBucketsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drmcore_curlstore_buckets",
		Help: "Current number of host buckets held by the curl connection store.",
	})

	CurlBucketEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_curlstore_bucket_evictions_total",
		Help: "Total number of host bucket evictions, by outcome (evicted/grew).",
	}, []string{"outcome"})

	CurlHandleWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_curlstore_handle_requests_total",
		Help: "Total number of handle acquisitions, by outcome (pooled/fresh).",
	}, []string{"outcome"})

	// Scheduler metrics.

	SchedulerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drmcore_scheduler_queue_depth",
		Help: "Current number of queued tasks awaiting the scheduler worker.",
	})

	SchedulerTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_scheduler_tasks_total",
		Help: "Total number of scheduler task outcomes, by outcome (scheduled/rejected/removed/run/skipped).",
	}, []string{"outcome"})

	// Event manager metrics.

	EventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_events_dispatched_total",
		Help: "Total number of events dispatched, by type and mode (sync/async).",
	}, []string{"type", "mode"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drmcore_events_dropped_total",
		Help: "Total number of events dropped, by reason (released/fake_tune).",
	}, []string{"reason"})
)

// SetCircuitBreakerState records the named breaker's current state as a label.
func SetCircuitBreakerState(name string, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		circuitBreakerStateInfo.WithLabelValues(name, s).Set(0)
	}
	circuitBreakerStateInfo.WithLabelValues(name, state).Set(1)
}

// SetCircuitBreakerStatus records the numeric circuit breaker state (0/1/2).
func SetCircuitBreakerStatus(name string, status int) {
	circuitBreakerStatus.WithLabelValues(name).Set(float64(status))
}

// RecordCircuitBreakerTrip increments the trip counter for a named breaker.
func RecordCircuitBreakerTrip(name, reason string) {
	circuitBreakerTrips.WithLabelValues(name, reason).Inc()
}
