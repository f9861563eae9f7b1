// Package observability serves Prometheus metrics and process health, and
// provides gRPC interceptors that record them.
package observability

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voice-dictation/internal/observability/logging"
)

// Server exposes /metrics, /healthz and /readyz.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates the metrics server. ready reports readiness; nil
// means always ready.
func NewServer(addr string, ready func() bool) *Server {
	return &Server{
		log: logging.WithComponent("metrics"),
		server: &http.Server{
			Addr:         addr,
			Handler:      Handler(ready),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the observability routes.
func Handler(ready func() bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

// Start binds the listener and serves in the background. A bind failure
// is returned instead of being logged from the goroutine.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", s.server.Addr, err)
	}
	s.log.Info().Str("addr", lis.Addr().String()).Msg("Metrics server listening")
	go func() {
		if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
