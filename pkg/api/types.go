package api

import (
	"time"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// TrustScoreResponse is the trust score of a seller with its per-component
// breakdown.
type TrustScoreResponse struct {
	SellerID string                 `json:"seller_id"`
	Total    int                    `json:"total"`
	Max      int                    `json:"max"`
	Level    string                 `json:"level"` // "low", "medium", "high"
	Detail   autrust.ScoreBreakdown `json:"detail"`
}

// PlanResponse is a user's subscription standing.
type PlanResponse struct {
	UserID        string             `json:"user_id"`
	Plan          string             `json:"plan"`
	MaxListings   int                `json:"max_listings"`
	ListingsUsed  int                `json:"listings_used"`
	CanCreate     bool               `json:"can_create_listing"`
	PendingChange *PendingPlanChange `json:"pending_change,omitempty"`
}

// PendingPlanChange is a staged downgrade awaiting the batch commit.
type PendingPlanChange struct {
	NewPlan     string    `json:"new_plan"`
	MaxListings int       `json:"max_listings,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReportResponse is the lifecycle state of a vehicle history report.
type ReportResponse struct {
	ReportID  string    `json:"report_id"`
	ListingID string    `json:"listing_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SponsorshipResponse is the sponsorship window of a listing.
type SponsorshipResponse struct {
	ListingID      string     `json:"listing_id"`
	IsSponsored    bool       `json:"is_sponsored"`
	SponsoredUntil *time.Time `json:"sponsored_until,omitempty"`
}
