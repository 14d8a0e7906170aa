package autrust_test

import (
	"testing"
	"time"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

var scoreNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func verifiedSeller(createdAt time.Time) *autrust.Seller {
	return &autrust.Seller{
		ID:               "seller_1",
		AccountCreatedAt: createdAt,
		EmailVerified:    true,
		PhoneVerified:    true,
		KycStatus:        autrust.KycVerified,
	}
}

func TestComputeTrustScore_NilSeller(t *testing.T) {
	score := autrust.ComputeTrustScore(nil, autrust.SellerStats{ListingsCount: 10}, scoreNow)
	if score.Total != 0 {
		t.Errorf("Expected zero score for nil seller, got %d", score.Total)
	}
}

func TestComputeTrustScore_MaxedSeller(t *testing.T) {
	seller := verifiedSeller(scoreNow.AddDate(-3, 0, 0))
	stats := autrust.SellerStats{
		ListingsCount:  12,
		RatingsAverage: 5.0,
		RatingsCount:   40,
	}

	score := autrust.ComputeTrustScore(seller, stats, scoreNow)
	if score.Total != 100 {
		t.Errorf("Expected 100, got %d (%+v)", score.Total, score.Breakdown)
	}
}

func TestComputeTrustScore_IdentityIsBinary(t *testing.T) {
	tests := []struct {
		name   string
		email  bool
		phone  bool
		kyc    autrust.KycStatus
		points int
	}{
		{"all verified", true, true, autrust.KycVerified, 25},
		{"missing phone", true, false, autrust.KycVerified, 0},
		{"missing email", false, true, autrust.KycVerified, 0},
		{"kyc pending", true, true, autrust.KycPendingReview, 0},
		{"kyc rejected", true, true, autrust.KycRejected, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seller := &autrust.Seller{
				ID:               "seller_1",
				AccountCreatedAt: scoreNow,
				EmailVerified:    tt.email,
				PhoneVerified:    tt.phone,
				KycStatus:        tt.kyc,
			}
			score := autrust.ComputeTrustScore(seller, autrust.SellerStats{}, scoreNow)
			if score.Breakdown.Identity != tt.points {
				t.Errorf("Expected identity %d, got %d", tt.points, score.Breakdown.Identity)
			}
		})
	}
}

func TestComputeTrustScore_HistoryComponent(t *testing.T) {
	tests := []struct {
		listings int
		points   int
	}{
		{0, 0},
		{-3, 0},
		{1, 5},
		{3, 15},
		{5, 25},
		{50, 25},
	}

	for _, tt := range tests {
		seller := verifiedSeller(scoreNow)
		score := autrust.ComputeTrustScore(seller, autrust.SellerStats{ListingsCount: tt.listings}, scoreNow)
		if score.Breakdown.History != tt.points {
			t.Errorf("listings=%d: expected history %d, got %d", tt.listings, tt.points, score.Breakdown.History)
		}
	}
}

func TestComputeTrustScore_ReviewsComponent(t *testing.T) {
	tests := []struct {
		name   string
		avg    float64
		count  int
		points int
	}{
		{"no reviews", 4.8, 0, 0},
		{"perfect", 5.0, 10, 25},
		{"four stars", 4.0, 10, 20},
		{"rounds half up", 4.5, 10, 23}, // 4.5/5*25 = 22.5
		{"rounds down", 4.4, 10, 22},    // 4.4/5*25 = 22.0
		{"clamped above five", 7.0, 10, 25},
		{"clamped below zero", -1.0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seller := verifiedSeller(scoreNow)
			stats := autrust.SellerStats{RatingsAverage: tt.avg, RatingsCount: tt.count}
			score := autrust.ComputeTrustScore(seller, stats, scoreNow)
			if score.Breakdown.Reviews != tt.points {
				t.Errorf("Expected reviews %d, got %d", tt.points, score.Breakdown.Reviews)
			}
		})
	}
}

func TestComputeTrustScore_AccountAgeComponent(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		points    int
	}{
		{"brand new", scoreNow, 0},
		{"one month", scoreNow.AddDate(0, -1, 0), 1},
		{"twelve months", scoreNow.AddDate(-1, 0, 0), 12},
		{"twenty four months", scoreNow.AddDate(-2, 0, 0), 25},
		{"five years", scoreNow.AddDate(-5, 0, 0), 25},
		{"created in the future", scoreNow.AddDate(0, 2, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seller := verifiedSeller(tt.createdAt)
			score := autrust.ComputeTrustScore(seller, autrust.SellerStats{}, scoreNow)
			if score.Breakdown.AccountAge != tt.points {
				t.Errorf("Expected account age %d, got %d", tt.points, score.Breakdown.AccountAge)
			}
		})
	}
}

func TestComputeTrustScore_CalendarMonthDiff(t *testing.T) {
	// Day of month is ignored: Jan 31 to Feb 1 still counts as one month.
	created := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	seller := verifiedSeller(created)
	score := autrust.ComputeTrustScore(seller, autrust.SellerStats{}, now)
	if score.Breakdown.AccountAge != 1 {
		t.Errorf("Expected account age 1, got %d", score.Breakdown.AccountAge)
	}
}

func TestComputeTrustScore_Deterministic(t *testing.T) {
	seller := verifiedSeller(scoreNow.AddDate(-1, -3, 0))
	stats := autrust.SellerStats{ListingsCount: 4, RatingsAverage: 3.7, RatingsCount: 9}

	first := autrust.ComputeTrustScore(seller, stats, scoreNow)
	second := autrust.ComputeTrustScore(seller, stats, scoreNow)
	if first != second {
		t.Errorf("Score not deterministic: %+v vs %+v", first, second)
	}

	sum := first.Breakdown.Identity + first.Breakdown.History +
		first.Breakdown.Reviews + first.Breakdown.AccountAge
	if first.Total != sum {
		t.Errorf("Total %d does not equal component sum %d", first.Total, sum)
	}
}
