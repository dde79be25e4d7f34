// Package metrics registers the Prometheus collectors for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpensesCreated counts expenses recorded, labeled by split policy.
	ExpensesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_expenses_created_total",
		Help: "Number of expenses recorded, by split policy.",
	}, []string{"policy"})

	// SharesSettled counts share settlements, labeled by how they happened:
	// "direct" for one-off settle calls, "plan" for accepted transfer plans.
	SharesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_shares_settled_total",
		Help: "Number of shares marked settled, by settlement mode.",
	}, []string{"mode"})

	// PlansAccepted counts accepted transfer plans.
	PlansAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transfer_plans_accepted_total",
		Help: "Number of transfer plans applied to the ledger.",
	})

	// InvariantViolations counts sum-of-shares post-condition failures.
	// Any increase here is a bug in the split engine.
	InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_invariant_violations_total",
		Help: "Number of rejected mutations that violated the share-sum invariant.",
	})

	// RequestDuration tracks HTTP handler latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
