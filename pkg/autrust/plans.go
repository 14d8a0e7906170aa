package autrust

import (
	"time"
)

// Plan is a seller subscription plan.
type Plan string

const (
	// PlanStart is the entry plan
	PlanStart Plan = "START"
	// PlanPro is the professional plan
	PlanPro Plan = "PRO"
	// PlanElite is the high-volume plan
	PlanElite Plan = "ELITE"
	// PlanEnterprise is the dealer-network plan
	PlanEnterprise Plan = "ENTERPRISE"
)

// PlanLimits bounds the configurable maxListings of a plan.
type PlanLimits struct {
	MinListings int
	MaxListings int
}

// planLimits is the fixed per-plan listing-count table.
var planLimits = map[Plan]PlanLimits{
	PlanStart:      {MinListings: 1, MaxListings: 14},
	PlanPro:        {MinListings: 15, MaxListings: 30},
	PlanElite:      {MinListings: 31, MaxListings: 120},
	PlanEnterprise: {MinListings: 120, MaxListings: 1000},
}

// planRank orders plans for upgrade/downgrade detection.
var planRank = map[Plan]int{
	PlanStart:      1,
	PlanPro:        2,
	PlanElite:      3,
	PlanEnterprise: 4,
}

// PlanPriceEUR is the monthly price per plan in euros.
var PlanPriceEUR = map[Plan]int64{
	PlanStart:      0,
	PlanPro:        189,
	PlanElite:      289,
	PlanEnterprise: 489,
}

// sponsorDurations is the single canonical metadata.duration -> days table.
// Earlier call sites carried divergent copies of this mapping; this table is
// the source of truth.
var sponsorDurations = map[string]int{
	"7":  7,
	"20": 20,
	"30": 30,
}

// defaultSponsorDays is used when metadata.duration is unrecognized.
const defaultSponsorDays = 7

// SponsorDurationDays decodes a checkout metadata.duration tag into a number
// of sponsorship days.
func SponsorDurationDays(tag string) int {
	if days, ok := sponsorDurations[tag]; ok {
		return days
	}
	return defaultSponsorDays
}

// KnownPlan reports whether name is one of the fixed plans.
func KnownPlan(name string) bool {
	_, ok := planRank[Plan(name)]
	return ok
}

// LimitsFor returns the listing-count bounds of a plan.
func LimitsFor(plan Plan) (PlanLimits, error) {
	limits, ok := planLimits[plan]
	if !ok {
		return PlanLimits{}, ErrUnknownPlan
	}
	return limits, nil
}

// ValidateMaxListings rejects a requested maxListings outside the target
// plan's [min,max] bounds. Called before any state change.
func ValidateMaxListings(plan Plan, maxListings int) error {
	limits, err := LimitsFor(plan)
	if err != nil {
		return err
	}
	if maxListings < limits.MinListings || maxListings > limits.MaxListings {
		return ErrMaxListingsOutOfRange
	}
	return nil
}

// ClampMaxListings forces maxListings into the plan's bounds. Used when a
// staged downgrade is committed and the previous value no longer fits.
func ClampMaxListings(plan Plan, maxListings int) int {
	limits, ok := planLimits[plan]
	if !ok {
		return maxListings
	}
	if maxListings < limits.MinListings {
		return limits.MinListings
	}
	if maxListings > limits.MaxListings {
		return limits.MaxListings
	}
	return maxListings
}

// IsUpgrade reports whether moving from current to next is an upgrade.
// Absence of a current plan always counts as an upgrade.
func IsUpgrade(current, next Plan) bool {
	if current == "" {
		return true
	}
	return planRank[next] > planRank[current]
}

// PlanPricing computes upgrade differentials, with an injectable clock so the
// promo window is testable.
type PlanPricing struct {
	// PromoProEndDate is the cutoff before which the PRO plan price is
	// treated as zero when computing upgrade differentials.
	PromoProEndDate time.Time
}

// priceAt returns the effective price of a plan at a given time.
func (p PlanPricing) priceAt(plan Plan, now time.Time) int64 {
	if plan == "" {
		return 0
	}
	if plan == PlanPro && now.Before(p.PromoProEndDate) {
		return 0
	}
	return PlanPriceEUR[plan]
}

// UpgradeAmountDueCents returns the payment required to move from current to
// next at time now, in euro cents. A differential of zero or less means the
// change applies immediately without payment.
func (p PlanPricing) UpgradeAmountDueCents(current, next Plan, now time.Time) int64 {
	diff := p.priceAt(next, now) - p.priceAt(current, now)
	if diff <= 0 {
		return 0
	}
	return diff * 100
}
