// Package httptransport assembles the HTTP surface: the shared middleware
// chain, the public share-link routes and the authenticated staff routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/platform/metrics"
	"docvault/internal/platform/middleware"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
)

// StaffRoutes are mounted behind bearer authentication.
type StaffRoutes interface {
	Register(r chi.Router)
}

// PublicRoutes are reachable by share-link holders without a staff token.
type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Validator      middleware.TokenValidator
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
	Staff          []StaffRoutes
	Public         []PublicRoutes

	// PublicMiddleware wraps only the public routes.
	PublicMiddleware []func(http.Handler) http.Handler
}

func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Latency(cfg.Metrics))
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Health, logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(cfg.PublicMiddleware...)
		for _, routes := range cfg.Public {
			routes.RegisterPublic(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Validator, logger))
		for _, routes := range cfg.Staff {
			routes.Register(r)
		}
	})
	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := make(map[string]string, len(checks))
		ready := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				ready = false
				status[name] = "unavailable"
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				continue
			}
			status[name] = "ok"
		}
		if !ready {
			httputil.WriteError(w, dErrors.New(dErrors.CodePersistence, "dependencies unavailable"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}
