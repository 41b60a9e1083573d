package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions    *prometheus.CounterVec
	StoreErrors  prometheus.Counter
	BreakerState prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_ratelimit_decisions_total",
			Help: "Rate limit decisions by outcome (allowed, limited) and source (primary, fallback)",
		}, []string{"outcome", "source"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "docvault_ratelimit_store_errors_total",
			Help: "Failed checks against the shared rate limit store",
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "docvault_ratelimit_breaker_open",
			Help: "1 while the shared store is bypassed in favour of the in-process fallback",
		}),
	}
}

func (m *Metrics) IncDecision(allowed, degraded bool) {
	outcome, source := "allowed", "primary"
	if !allowed {
		outcome = "limited"
	}
	if degraded {
		source = "fallback"
	}
	m.Decisions.WithLabelValues(outcome, source).Inc()
}

func (m *Metrics) IncStoreError() {
	m.StoreErrors.Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}
