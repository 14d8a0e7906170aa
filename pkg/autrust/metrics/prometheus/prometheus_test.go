package prommetrics

import (
	"errors"
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

func TestMetrics_RecordTrustScore(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordTrustScore(87, false)
	metrics.RecordTrustScore(87, true)

	family := gatherFamily(t, reg, "test_trust_score")
	if family == nil {
		t.Fatal("Expected trust score histogram to be registered")
	}
	if len(family.GetMetric()) != 2 {
		t.Errorf("Expected 2 label combinations (cached true/false), got %d", len(family.GetMetric()))
	}
}

func TestMetrics_RecordPlanChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordPlanChange("start", "pro", "immediate")
	metrics.RecordPlanChange("", "start", "immediate")

	family := gatherFamily(t, reg, "test_plans_changes_total")
	if family == nil {
		t.Fatal("Expected plan change counter to be registered")
	}

	// Empty from_plan is normalized to "none".
	foundNone := false
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "from_plan" && label.GetValue() == "none" {
				foundNone = true
			}
		}
	}
	if !foundNone {
		t.Error("Expected empty from_plan to be recorded as none")
	}
}

func TestMetrics_RecordListingLimitCheck(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordListingLimitCheck("pro", true)
	metrics.RecordListingLimitCheck("pro", true)
	metrics.RecordListingLimitCheck("pro", false)

	family := gatherFamily(t, reg, "test_plans_listing_limit_checks_total")
	if family == nil {
		t.Fatal("Expected listing check counter to be registered")
	}

	var allowedCount float64
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "allowed" && label.GetValue() == "true" {
				allowedCount = metric.GetCounter().GetValue()
			}
		}
	}
	if allowedCount != 2 {
		t.Errorf("Expected 2 allowed checks, got %v", allowedCount)
	}
}

func TestMetrics_RecordStorageOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	metrics.RecordStorageOperation("get_seller", 5*time.Millisecond, nil)
	metrics.RecordStorageOperation("get_seller", 5*time.Millisecond, errors.New("boom"))

	family := gatherFamily(t, reg, "test_storage_operation_duration_seconds")
	if family == nil {
		t.Fatal("Expected storage operation histogram to be registered")
	}
	if len(family.GetMetric()) != 2 {
		t.Errorf("Expected success and error series, got %d", len(family.GetMetric()))
	}
}
