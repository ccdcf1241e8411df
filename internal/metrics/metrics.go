// Package metrics registers the allocator's Prometheus collectors on the
// default registry. The /metrics route in the router exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal counts claim attempts by result: assigned, none_available,
	// limit, error.
	ClaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_claims_total",
		Help: "Account claim attempts by result.",
	}, []string{"result"})

	// ReportsTotal counts outcome reports by outcome and result.
	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_reports_total",
		Help: "Outcome reports by outcome and result.",
	}, []string{"outcome", "result"})

	// StoreErrorsTotal counts store faults surfaced to the service by
	// operation.
	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_store_errors_total",
		Help: "Backing store faults by operation.",
	}, []string{"op"})

	// ClaimDuration observes end-to-end claim latency in seconds, including
	// all store round-trips.
	ClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocator_claim_duration_seconds",
		Help:    "End-to-end latency of RequestAccount.",
		Buckets: prometheus.DefBuckets,
	})
)
