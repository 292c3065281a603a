// Package metrics exposes Prometheus metrics for the marketplace module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// ListingsTotal counts listing lifecycle transitions.
	ListingsTotal *prometheus.CounterVec

	// TradeVolumeWei totals wei settled through buy.
	TradeVolumeWei prometheus.Counter

	// TradeVolumeCredits totals credits released through buy.
	TradeVolumeCredits prometheus.Counter
}

// New creates and registers the marketplace metrics.
func New() *Metrics {
	return &Metrics{
		ListingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cac_market_listings_total",
			Help: "Listing transitions by event (listed, cancelled, purchased)",
		}, []string{"event"}),
		TradeVolumeWei: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cac_market_trade_volume_wei_total",
			Help: "Wei settled through purchases",
		}),
		TradeVolumeCredits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cac_market_trade_volume_credits_total",
			Help: "Credits released through purchases",
		}),
	}
}
