package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m.ObserveRun("settlement-payouts", 250*time.Millisecond, nil, finished)
	m.ObserveRun("settlement-payouts", time.Second, errors.New("stripe down"), finished.Add(time.Hour))
	m.ObserveRun("", time.Millisecond, nil, finished)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "settlement_cron_job_runs_total")
	if runs == nil {
		t.Fatal("runs metric missing")
	}
	if got := counterWithLabels(runs, map[string]string{"job": "settlement-payouts", "outcome": "success"}); got != 1 {
		t.Fatalf("expected 1 success, got %f", got)
	}
	if got := counterWithLabels(runs, map[string]string{"job": "settlement-payouts", "outcome": "failure"}); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := counterWithLabels(runs, map[string]string{"job": "unknown", "outcome": "success"}); got != 1 {
		t.Fatalf("expected empty job name recorded as unknown, got %f", got)
	}

	// a failed run must not advance the last success gauge
	if got, err := gaugeValue(mfs, "settlement_cron_job_last_success_timestamp_seconds", "settlement-payouts"); err != nil {
		t.Fatalf("gauge: %v", err)
	} else if got != float64(finished.Unix()) {
		t.Fatalf("expected last success %d, got %f", finished.Unix(), got)
	}

	hist := findMetricFamily(mfs, "settlement_cron_job_duration_seconds")
	if hist == nil {
		t.Fatal("duration metric missing")
	}
	for _, metric := range hist.GetMetric() {
		if matchesLabel(metric.GetLabel(), "job", "settlement-payouts") && metric.GetHistogram().GetSampleCount() != 2 {
			t.Fatalf("expected 2 duration samples, got %d", metric.GetHistogram().GetSampleCount())
		}
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, nil, time.Now())
	NewCronJobMetrics(nil).ObserveRun("x", time.Second, nil, time.Now())
}

func counterWithLabels(mf *dto.MetricFamily, labels map[string]string) float64 {
	for _, metric := range mf.GetMetric() {
		matched := true
		for name, value := range labels {
			if !matchesLabel(metric.GetLabel(), name, value) {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func gaugeValue(mfs []*dto.MetricFamily, name, job string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "job", job) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing job %s", name, job)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}
