/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counts the ledger operations the server performs so operators can
  watch earn/burn volume, expiry churn and optimistic-lock pressure.
  Exposed on GET /metrics via promhttp.

METRICS:
  points_credits_total          credits booked, labeled by reason
  points_credited_total         points granted, labeled by reason
  points_redemptions_total      successful redemptions
  points_redeemed_total         points spent
  points_expired_total          points swept to expiration
  points_reversals_total        compensating corrections
  points_conflicts_total        units that exhausted their retry budget
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus counters.
type Metrics struct {
	Credits     *prometheus.CounterVec
	Credited    *prometheus.CounterVec
	Redemptions prometheus.Counter
	Redeemed    prometheus.Counter
	Expired     prometheus.Counter
	Reversals   prometheus.Counter
	Conflicts   prometheus.Counter
}

// NewMetrics registers the counters on the given registerer. Main passes
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Credits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "points_credits_total",
			Help: "Number of credit entries booked.",
		}, []string{"reason"}),
		Credited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "points_credited_total",
			Help: "Points granted across all credits.",
		}, []string{"reason"}),
		Redemptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "points_redemptions_total",
			Help: "Number of successful redemptions.",
		}),
		Redeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "points_redeemed_total",
			Help: "Points spent across all redemptions.",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Name: "points_expired_total",
			Help: "Points removed by expiration sweeps.",
		}),
		Reversals: factory.NewCounter(prometheus.CounterOpts{
			Name: "points_reversals_total",
			Help: "Number of compensating reversal entries.",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "points_conflicts_total",
			Help: "Atomic units that exhausted their optimistic retry budget.",
		}),
	}
}
