package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Undelivered *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Undelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_notifications_undelivered_total",
			Help: "Notifications that never reached the broker, by kind and cause (buffer_full, broker)",
		}, []string{"kind", "cause"}),
	}
}

func (m *Metrics) IncUndelivered(kind, cause string) {
	m.Undelivered.WithLabelValues(kind, cause).Inc()
}
