package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSettlementMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)
	m.AddIngested(2)
	m.IncTransition("", "pending")
	m.IncTransition("pending", "eligible")
	m.IncPayoutAttempt("paid")
	m.ObserveTransfer(120 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	mf := findMetricFamily(mfs, "settlement_entries_ingested_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected ingested=2, got %v", mf)
	}
	if got, err := fetchCounterValue(mfs, "settlement_transitions_total", "from", "none"); err != nil || got != 1 {
		t.Fatalf("expected none transition=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "settlement_payout_attempts_total", "outcome", "paid"); err != nil || got != 1 {
		t.Fatalf("expected paid attempt=1, got %f (%v)", got, err)
	}
	if h := findMetricFamily(mfs, "settlement_transfer_duration_seconds"); h == nil || h.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one transfer observation")
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	m.AddIngested(1)
	m.IncTransition("a", "b")
	m.IncPayoutAttempt("failed")
	m.ObserveTransfer(time.Second)

	NewSettlementMetrics(nil).AddIngested(1)
}
