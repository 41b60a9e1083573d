package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"docvault/internal/ratelimit"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error)
}

// ExceededResponse is written with 429.
type ExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}

type Middleware struct {
	limiter  Limiter
	limit    ratelimit.Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, limit ratelimit.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, limit: limit, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShareLinks limits share-link requests per client IP. Limiter errors let the
// request through.
func (m *Middleware) ShareLinks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		res, err := m.limiter.Allow(ctx, ratelimit.ShareLinkKey(requestcontext.ClientIP(ctx)), m.limit)
		if err != nil {
			m.logger.ErrorContext(ctx, "share link rate limit check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, res)
		if !res.Allowed {
			m.logger.WarnContext(ctx, "share link rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
				Error:            "rate_limit_exceeded",
				ErrorDescription: "too many share link requests, try again later",
				RetryAfter:       res.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, res *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if res.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}
