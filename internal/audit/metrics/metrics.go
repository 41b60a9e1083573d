package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts audit writes and the ones that were lost.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	WriteFailures  *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_audit_events_recorded_total",
			Help: "Audit events appended to the ledger, by action",
		}, []string{"action"}),
		WriteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_audit_write_failures_total",
			Help: "Audit events that could not be appended, by action and failure mode",
		}, []string{"action", "mode"}),
		QueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docvault_audit_query_duration_seconds",
			Help:    "Audit trail query latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
	}
}

func (m *Metrics) IncRecorded(action string) {
	m.EventsRecorded.WithLabelValues(action).Inc()
}

func (m *Metrics) IncWriteFailure(action, mode string) {
	m.WriteFailures.WithLabelValues(action, mode).Inc()
}

func (m *Metrics) ObserveQuery(seconds float64) {
	m.QueryDuration.Observe(seconds)
}
