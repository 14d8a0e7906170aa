package autrust

import "time"

// Metrics defines the interface for tracking core marketplace operations.
type Metrics interface {
	// RecordTrustScore records a trust score computation and its result bucket.
	RecordTrustScore(total int, cached bool)

	// RecordPlanChange records a plan change decision.
	// mode: "immediate", "payment_required" or "deferred".
	RecordPlanChange(fromPlan, toPlan, mode string)

	// RecordListingLimitCheck records a listing-limit enforcement decision.
	RecordListingLimitCheck(plan string, allowed bool)

	// RecordStorageOperation records the duration and status of a storage operation.
	RecordStorageOperation(operation string, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordTrustScore(total int, cached bool)                                    {}
func (n *NoopMetrics) RecordPlanChange(fromPlan, toPlan, mode string)                             {}
func (n *NoopMetrics) RecordListingLimitCheck(plan string, allowed bool)                          {}
func (n *NoopMetrics) RecordStorageOperation(operation string, duration time.Duration, err error) {}
