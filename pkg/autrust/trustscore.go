package autrust

import (
	"math"
	"time"
)

const (
	// maxComponentPoints is the weight of each breakdown component
	maxComponentPoints = 25
	// maxScore caps the total; by construction the sum of four components
	// cannot exceed it, but the cap is enforced anyway so a future weight
	// change cannot push scores past 100
	maxScore = 100

	// historyPointsPerListing is the linear credit per published listing
	historyPointsPerListing = 5
	// accountAgeFullMonths is the age in months at which the account-age
	// component saturates (25 points / 24 months)
	accountAgeFullMonths = 24
)

// ComputeTrustScore maps a seller snapshot plus aggregate stats to a 0-100
// score with a per-component breakdown. It is a pure function: identical
// inputs and an identical now always produce the same Score. A nil seller
// yields a zero score, not an error.
func ComputeTrustScore(seller *Seller, stats SellerStats, now time.Time) Score {
	if seller == nil {
		return Score{}
	}

	b := ScoreBreakdown{
		Identity:   identityPoints(seller),
		History:    historyPoints(stats.ListingsCount),
		Reviews:    reviewPoints(stats.RatingsAverage, stats.RatingsCount),
		AccountAge: accountAgePoints(seller.AccountCreatedAt, now),
	}

	total := b.Identity + b.History + b.Reviews + b.AccountAge
	if total > maxScore {
		total = maxScore
	}

	return Score{Total: total, Breakdown: b}
}

// identityPoints is binary: full credit only when every verification step is
// complete, no partial credit.
func identityPoints(s *Seller) int {
	if s.EmailVerified && s.PhoneVerified && s.KycStatus == KycVerified {
		return maxComponentPoints
	}
	return 0
}

func historyPoints(listings int) int {
	if listings <= 0 {
		return 0
	}
	pts := listings * historyPointsPerListing
	if pts > maxComponentPoints {
		return maxComponentPoints
	}
	return pts
}

// reviewPoints rounds half away from zero; that policy is fixed and must not
// drift between call sites.
func reviewPoints(avg float64, count int) int {
	if count <= 0 {
		return 0
	}
	if avg < 0 {
		avg = 0
	}
	if avg > 5 {
		avg = 5
	}
	return int(math.Round(avg / 5 * maxComponentPoints))
}

// accountAgePoints grows linearly with calendar months since creation and
// saturates after accountAgeFullMonths. Months are a calendar year/month
// difference, not an elapsed-day count.
func accountAgePoints(createdAt time.Time, now time.Time) int {
	months := monthsBetween(createdAt, now)
	pts := months * maxComponentPoints / accountAgeFullMonths
	if pts > maxComponentPoints {
		return maxComponentPoints
	}
	return pts
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if months < 0 {
		return 0
	}
	return months
}
