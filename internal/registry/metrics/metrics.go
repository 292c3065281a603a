package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry vertical's Prometheus metrics.
type Metrics struct {
	RegistrationsTotal prometheus.Counter
	KycDecisionsTotal  *prometheus.CounterVec
}

// New creates and registers the registry metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cac_registry_registrations_total",
			Help: "Profiles registered (including re-registrations)",
		}),
		KycDecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cac_registry_kyc_decisions_total",
			Help: "Operator KYC decisions by outcome",
		}, []string{"decision"}),
	}
}
