package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GrantsIssued      *prometheus.CounterVec
	Validations       *prometheus.CounterVec
	GrantsDeactivated *prometheus.CounterVec
	TokenCollisions   prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		GrantsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_grants_issued_total",
			Help: "Share grants issued, by access level",
		}, []string{"access_level"}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_grant_validations_total",
			Help: "Token validations, by outcome (valid, not_found, inactive, expired)",
		}, []string{"outcome"}),
		GrantsDeactivated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_grants_deactivated_total",
			Help: "Grants deactivated, by cause (manual, revocation, expiry)",
		}, []string{"cause"}),
		TokenCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "docvault_grant_token_collisions_total",
			Help: "Generated share tokens rejected by the uniqueness constraint",
		}),
	}
}

func (m *Metrics) IncIssued(level string) {
	m.GrantsIssued.WithLabelValues(level).Inc()
}

func (m *Metrics) IncValidation(outcome string) {
	m.Validations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddDeactivated(cause string, n int) {
	m.GrantsDeactivated.WithLabelValues(cause).Add(float64(n))
}

func (m *Metrics) IncTokenCollision() {
	m.TokenCollisions.Inc()
}
