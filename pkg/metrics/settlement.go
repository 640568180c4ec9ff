package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records ledger activity. A nil receiver is a no-op so
// components can run without a registry in tests.
type SettlementMetrics struct {
	ingested    prometheus.Counter
	transitions *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	transfer    prometheus.Histogram
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_entries_ingested_total",
		Help: "Settlement entries created from order paid events.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_total",
		Help: "Applied settlement status transitions.",
	}, []string{"from", "to"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_payout_attempts_total",
		Help: "Payout transfer attempts by outcome.",
	}, []string{"outcome"})
	transfer := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_transfer_duration_seconds",
		Help:    "Latency of external transfer calls.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(ingested, transitions, attempts, transfer)
	return &SettlementMetrics{
		ingested:    ingested,
		transitions: transitions,
		attempts:    attempts,
		transfer:    transfer,
	}
}

// AddIngested counts newly created entries.
func (m *SettlementMetrics) AddIngested(n int) {
	if m == nil || m.ingested == nil || n <= 0 {
		return
	}
	m.ingested.Add(float64(n))
}

// IncTransition counts a status change. An empty from renders as "none".
func (m *SettlementMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, normalizeLabel(to)).Inc()
}

// IncPayoutAttempt counts a transfer attempt with its outcome.
func (m *SettlementMetrics) IncPayoutAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveTransfer records the duration of one transfer call.
func (m *SettlementMetrics) ObserveTransfer(d time.Duration) {
	if m == nil || m.transfer == nil {
		return
	}
	m.transfer.Observe(d.Seconds())
}
