// Package http assembles the service's HTTP surface.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cac/internal/platform/metrics"
	"cac/internal/platform/middleware"
)

// Registrar mounts a vertical's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the chi router with the standard middleware chain and
// mounts every vertical plus /healthz and /metrics.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, handlers ...Registrar) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	if m != nil {
		r.Use(middleware.Latency(m))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
