package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Revocations      *prometheus.CounterVec
	Reinstatements   prometheus.Counter
	RevokeConflicts  prometheus.Counter
	CascadedGrants   prometheus.Counter
	CacheLookups     *prometheus.CounterVec
	TxDurationMillis prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Revocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_revocations_total",
			Help: "Documents revoked, by reason",
		}, []string{"reason"}),
		Reinstatements: f.NewCounter(prometheus.CounterOpts{
			Name: "docvault_reinstatements_total",
			Help: "Revoked documents reinstated",
		}),
		RevokeConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "docvault_revoke_conflicts_total",
			Help: "Revoke attempts rejected because the document was already revoked",
		}),
		CascadedGrants: f.NewCounter(prometheus.CounterOpts{
			Name: "docvault_revocation_cascaded_grants_total",
			Help: "Access grants deactivated by revocations",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_revocation_cache_lookups_total",
			Help: "Revocation cache lookups, by result (hit, miss, error)",
		}, []string{"result"}),
		TxDurationMillis: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docvault_revocation_tx_duration_ms",
			Help:    "Duration of revoke and reinstate transactions in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}),
	}
}

func (m *Metrics) IncRevoked(reason string) {
	m.Revocations.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncReinstated() {
	m.Reinstatements.Inc()
}

func (m *Metrics) IncConflict() {
	m.RevokeConflicts.Inc()
}

func (m *Metrics) AddCascaded(n int) {
	m.CascadedGrants.Add(float64(n))
}

func (m *Metrics) IncCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTx(ms float64) {
	m.TxDurationMillis.Observe(ms)
}
