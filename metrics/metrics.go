// Package metrics exposes the Prometheus collectors of the census node.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vocdoni/zk-census/events"
)

var (
	// Submissions counts accepted submissions by admission path.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_submissions_total",
		Help: "Total number of accepted census submissions",
	}, []string{"path"})
	// Rejections counts rejected operations by operation and error category.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_rejections_total",
		Help: "Total number of rejected census operations",
	}, []string{"operation", "reason"})
	// Enrollments counts recorded enrollments.
	Enrollments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "census_enrollments_total",
		Help: "Total number of recorded enrollments",
	})
	// Population is the population of the current scope.
	Population = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "census_current_population",
		Help: "Number of identities counted in the current scope",
	})
	// Scope is the current scope number.
	Scope = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "census_current_scope",
		Help: "Current census scope",
	})
	// VerificationDuration observes the time spent verifying proofs.
	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "census_proof_verification_seconds",
		Help:    "Latency of Groth16 proof verification",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	// EventFailures counts events that could not be delivered.
	EventFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "census_event_delivery_failures_total",
		Help: "Total number of events that failed to reach at least one sink",
	})
)

// Reject records a rejected operation.
func Reject(operation, reason string) {
	Rejections.WithLabelValues(operation, reason).Inc()
}

// Sink updates the gauges and counters from ledger events.
type Sink struct{}

// Publish implements events.Sink.
func (Sink) Publish(_ context.Context, e *events.Event) error {
	switch p := e.Payload.(type) {
	case events.CensusCounted:
		Submissions.WithLabelValues(p.Path).Inc()
		Population.Set(float64(p.NewPopulation))
		Scope.Set(float64(p.Scope))
	case events.ScopeAdvanced:
		Population.Set(0)
		Scope.Set(float64(p.NewScope))
	case events.CitizenRegistered:
		Enrollments.Inc()
	}
	return nil
}
