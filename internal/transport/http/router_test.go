package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/identity"
	"docvault/internal/platform/metrics"
	id "docvault/pkg/domain"
	"docvault/pkg/requestcontext"
)

type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.Actor(r.Context()).ID.String())
	})
}

type ping struct{}

func (ping) RegisterPublic(r chi.Router) {
	r.Get("/share/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.RequestID(r.Context()))
	})
}

func newRouter(t *testing.T, health map[string]HealthCheck) (http.Handler, *identity.JWTService) {
	t.Helper()
	reg := prometheus.NewRegistry()
	jwt := identity.NewJWTService("test-signing-key", "docvault")
	return NewRouter(Config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        metrics.NewWithRegisterer(reg),
		Gatherer:       reg,
		Validator:      jwt,
		RequestTimeout: time.Second,
		Health:         health,
		Staff:          []StaffRoutes{whoami{}},
		Public:         []PublicRoutes{ping{}},
	}), jwt
}

func TestRouter(t *testing.T) {
	router, jwt := newRouter(t, nil)

	t.Run("public routes need no token and get a request id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/ping", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, rr.Header().Get("X-Request-ID"), rr.Body.String())
	})

	t.Run("staff routes require a bearer token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("staff routes see the token's actor", func(t *testing.T) {
		token, err := jwt.GenerateAccessToken("hr-9", id.TenantID(uuid.New()), id.RoleHR, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "hr-9", rr.Body.String())
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "docvault_http_request_duration_seconds")
	})

	t.Run("healthz", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestReadiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	router, _ := newRouter(t, map[string]HealthCheck{"postgres": healthy})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"postgres":"ok"`)

	router, _ = newRouter(t, map[string]HealthCheck{"postgres": healthy, "redis": down})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPublicMiddlewareWrapsOnlyPublicRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	jwt := identity.NewJWTService("test-signing-key", "docvault")
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Public", "1")
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(Config{
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:          metrics.NewWithRegisterer(reg),
		Gatherer:         reg,
		Validator:        jwt,
		RequestTimeout:   time.Second,
		Staff:            []StaffRoutes{whoami{}},
		Public:           []PublicRoutes{ping{}},
		PublicMiddleware: []func(http.Handler) http.Handler{tag},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/ping", nil))
	assert.Equal(t, "1", rr.Header().Get("X-Public"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Empty(t, rr.Header().Get("X-Public"))
}
