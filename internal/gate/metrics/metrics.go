package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_gate_decisions_total",
			Help: "Access gate decisions, by path (staff, token) and outcome (allowed or the denial code)",
		}, []string{"path", "outcome"}),
	}
}

func (m *Metrics) IncDecision(path, outcome string) {
	m.Decisions.WithLabelValues(path, outcome).Inc()
}
