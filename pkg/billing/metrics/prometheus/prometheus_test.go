package prommetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func counterValue(family *dto.MetricFamily, labels map[string]string) float64 {
	for _, metric := range family.GetMetric() {
		matched := 0
		for _, label := range metric.GetLabel() {
			if labels[label.GetName()] == label.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_RecordWebhookEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordWebhookEvent("stripe", "checkout.session.completed", "processed")
	metrics.RecordWebhookEvent("stripe", "checkout.session.completed", "processed")
	metrics.RecordWebhookEvent("stripe", "account.updated", "ignored")

	family := gatherFamily(t, reg, "test_billing_webhook_events_total")
	if family == nil {
		t.Fatal("Expected webhook event counter to be registered")
	}

	got := counterValue(family, map[string]string{
		"provider": "stripe", "event_type": "checkout.session.completed", "status": "processed",
	})
	if got != 2 {
		t.Errorf("Expected 2 processed checkout events, got %v", got)
	}
}

func TestMetrics_RecordReconciliation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordReconciliation("stripe", "report", "applied")
	metrics.RecordReconciliation("stripe", "report", "replayed")
	metrics.RecordReconciliation("stripe", "deposit", "applied")

	family := gatherFamily(t, reg, "test_billing_reconciliations_total")
	if family == nil {
		t.Fatal("Expected reconciliation counter to be registered")
	}
	if len(family.GetMetric()) != 3 {
		t.Errorf("Expected 3 outcome series, got %d", len(family.GetMetric()))
	}

	got := counterValue(family, map[string]string{
		"provider": "stripe", "entity": "report", "outcome": "replayed",
	})
	if got != 1 {
		t.Errorf("Expected 1 replayed report, got %v", got)
	}
}

func TestMetrics_RecordWebhookError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordWebhookError("stripe", "invalid_signature")

	family := gatherFamily(t, reg, "test_billing_webhook_errors_total")
	if family == nil {
		t.Fatal("Expected webhook error counter to be registered")
	}
}

func TestMetrics_RecordAPICall(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordAPICall("stripe", "checkout_session_create", "success")
	metrics.RecordAPICallDuration("stripe", "checkout_session_create", 120*time.Millisecond)

	if family := gatherFamily(t, reg, "test_billing_api_calls_total"); family == nil {
		t.Error("Expected API call counter to be registered")
	}
	if family := gatherFamily(t, reg, "test_billing_api_call_duration_seconds"); family == nil {
		t.Error("Expected API call duration histogram to be registered")
	}
}

func TestMetrics_RecordWebhookProcessingDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordWebhookProcessingDuration("stripe", "checkout.session.completed", 30*time.Millisecond)

	family := gatherFamily(t, reg, "test_billing_webhook_processing_duration_seconds")
	if family == nil {
		t.Fatal("Expected processing duration histogram to be registered")
	}
	if family.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Errorf("Expected 1 sample, got %d", family.GetMetric()[0].GetHistogram().GetSampleCount())
	}
}
