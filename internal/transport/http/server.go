// Package http exposes the bot's operational surface: liveness, readiness,
// and Prometheus metrics. It serves no user-facing functionality.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vijay-2155/VignanEcap/internal/config"
)

// Pinger is anything that can verify a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Accepter reports whether new fetch jobs are being accepted.
type Accepter interface {
	Accepting() bool
}

// Server is the operational HTTP server.
type Server struct {
	http    *http.Server
	logger  *slog.Logger
	bot     string
	started time.Time
}

// NewServer wires the health routes and the metrics handler. botUsername
// is echoed by /healthz so an operator can tell which bot account this
// process is serving.
func NewServer(cfg config.ServerConfig, botUsername string, store Pinger, pool Accepter, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		logger:  logger.With(slog.String("component", "http")),
		bot:     botUsername,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady(store, pool))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", slog.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "ok",
		"bot":    s.bot,
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady fails with 503 when the credential store is unreachable or
// the pool has stopped accepting jobs, so the scheduler stops routing work
// here during shutdown.
func (s *Server) handleReady(store Pinger, pool Accepter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"store": "ok", "pool": "ok"}
		ready := true

		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				checks["store"] = err.Error()
				ready = false
			}
		}
		if pool != nil && !pool.Accepting() {
			checks["pool"] = "not accepting jobs"
			ready = false
		}

		status := "ready"
		if !ready {
			status = "not ready"
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(w, r, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
