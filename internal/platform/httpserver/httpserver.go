// Package httpserver constructs the core's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the JSON API. The write timeout sits above the
// router's 30s per-request timeout so the timeout middleware, not the
// server, is what cuts off a slow handler and the client still gets an
// error body.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
