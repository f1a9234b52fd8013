// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carevault_http_requests_total",
			Help: "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carevault_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ConsentDecisionsTotal counts CheckAccess outcomes by result.
	ConsentDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carevault_consent_decisions_total",
			Help: "CheckAccess decisions by outcome (allow or denial reason).",
		},
		[]string{"outcome"},
	)

	// ConsentTransitionsTotal counts grant lifecycle transitions.
	ConsentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carevault_consent_transitions_total",
			Help: "Permission grant transitions by target status.",
		},
		[]string{"status"},
	)

	// CryptoOperationsTotal counts codec and derivation operations.
	CryptoOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carevault_crypto_operations_total",
			Help: "Key derivation and envelope codec operations by result.",
		},
		[]string{"operation", "result"},
	)
)
