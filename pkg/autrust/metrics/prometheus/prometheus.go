package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// Metrics implements autrust.Metrics using Prometheus.
type Metrics struct {
	trustScores       *prometheus.HistogramVec
	planChangesTotal  *prometheus.CounterVec
	listingChecks     *prometheus.CounterVec
	storageOperations *prometheus.HistogramVec
}

// NewMetrics creates a new Prometheus metrics implementation for the core.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		trustScores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trust",
			Name:      "score",
			Help:      "Distribution of computed trust scores.",
			Buckets:   []float64{0, 10, 25, 50, 75, 90, 100},
		}, []string{"cached"}),

		planChangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "changes_total",
			Help:      "Total number of plan change decisions.",
		}, []string{"from_plan", "to_plan", "mode"}),

		listingChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "listing_limit_checks_total",
			Help:      "Total number of listing-limit enforcement decisions.",
		}, []string{"plan", "allowed"}),

		storageOperations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}
}

func (m *Metrics) RecordTrustScore(total int, cached bool) {
	m.trustScores.WithLabelValues(strconv.FormatBool(cached)).Observe(float64(total))
}

func (m *Metrics) RecordPlanChange(fromPlan, toPlan, mode string) {
	if fromPlan == "" {
		fromPlan = "none"
	}
	m.planChangesTotal.WithLabelValues(fromPlan, toPlan, mode).Inc()
}

func (m *Metrics) RecordListingLimitCheck(plan string, allowed bool) {
	m.listingChecks.WithLabelValues(plan, strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) RecordStorageOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storageOperations.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// DefaultMetrics returns a Metrics implementation using the default
// Prometheus registerer.
func DefaultMetrics(namespace string) autrust.Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, namespace)
}
