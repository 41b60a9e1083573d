package service

import (
	"context"
	"log/slog"
	"time"

	"docvault/internal/ratelimit"
	"docvault/internal/ratelimit/metrics"
	"docvault/pkg/platform/circuit"
	"docvault/pkg/requestcontext"
)

// Store checks and records one request against a window.
type Store interface {
	Allow(ctx context.Context, key string, limit ratelimit.Limit, now time.Time) (*ratelimit.Result, error)
}

// Limiter prefers the shared primary store. After repeated primary errors the
// breaker opens and answers come from the in-process fallback; the primary is
// still consulted so that enough consecutive successes close the breaker.
type Limiter struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		l.breaker = b
	}
}

// New builds a limiter. A nil primary means only the fallback is used.
func New(primary, fallback Store, opts ...Option) *Limiter {
	l := &Limiter{
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.breaker == nil {
		l.breaker = circuit.New("ratelimit-store")
	}
	return l
}

func (l *Limiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	now := requestcontext.Now(ctx)
	if l.primary == nil {
		return l.record(l.fallback.Allow(ctx, key, limit, now))
	}

	res, err := l.primary.Allow(ctx, key, limit, now)
	if err != nil {
		if l.metrics != nil {
			l.metrics.IncStoreError()
		}
		_, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using in-process fallback",
				"breaker", l.breaker.Name(),
				"error", err,
			)
			l.setBreaker(true)
		}
		return l.degraded(ctx, key, limit)
	}

	_, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered", "breaker", l.breaker.Name())
		l.setBreaker(false)
	}
	if l.breaker.IsOpen() {
		return l.degraded(ctx, key, limit)
	}
	return l.record(res, nil)
}

func (l *Limiter) degraded(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	res, err := l.fallback.Allow(ctx, key, limit, requestcontext.Now(ctx))
	if err == nil {
		res.Degraded = true
	}
	return l.record(res, err)
}

func (l *Limiter) record(res *ratelimit.Result, err error) (*ratelimit.Result, error) {
	if err == nil && l.metrics != nil {
		l.metrics.IncDecision(res.Allowed, res.Degraded)
	}
	return res, err
}

func (l *Limiter) setBreaker(open bool) {
	if l.metrics != nil {
		l.metrics.SetBreakerOpen(open)
	}
}
