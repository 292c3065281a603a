// Package metrics exposes Prometheus metrics for the ledger module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// OperationsTotal counts ledger mutations by operation and outcome.
	OperationsTotal *prometheus.CounterVec

	// CreditsMinted counts credits created, by source (direct or quota).
	CreditsMinted *prometheus.CounterVec

	// CreditsSurrendered counts credits permanently retired.
	CreditsSurrendered prometheus.Counter
}

// New creates and registers the ledger metrics.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cac_ledger_operations_total",
			Help: "Ledger operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		CreditsMinted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cac_ledger_credits_minted_total",
			Help: "Credits minted, by source",
		}, []string{"source"}),
		CreditsSurrendered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cac_ledger_credits_surrendered_total",
			Help: "Credits permanently retired via surrender",
		}),
	}
}
