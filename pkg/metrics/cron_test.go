package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "cart-expiry"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "groupcart_cron_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "groupcart_cron_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "groupcart_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCartMetricsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCartMetrics(reg)
	metrics.ObserveTransition("active", "completed")
	metrics.ObserveTransition("active", "completed")
	metrics.ObserveTransition("completed", "")
	metrics.ObserveContribution(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "groupcart_shared_cart_transitions_total", "to", "completed"); err != nil || got != 2 {
		t.Fatalf("expected 2 completions, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "groupcart_shared_cart_transitions_total", "to", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected blank label to normalise, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "groupcart_shared_cart_contributed_units_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 4 {
		t.Fatalf("expected 4 contributed units")
	}
}

func TestOutboxMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)
	metrics.Observe("shared_cart_completed", OutboxOutcomePublished)
	metrics.Observe("shared_cart_completed", OutboxOutcomeRetry)
	metrics.Observe("shared_cart_completed", OutboxOutcomeRetry)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "groupcart_outbox_events_total", "outcome", OutboxOutcomeRetry); err != nil || got != 2 {
		t.Fatalf("expected 2 retries, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewOutboxMetrics(nil).Observe("x", OutboxOutcomeTerminal)
	NewCronJobMetrics(nil).IncSuccess("x")
	NewCartMetrics(nil).ObserveTransition("a", "b")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	var nilMetrics *CartMetrics
	nilMetrics.ObserveContribution(1)
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

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
