package autrust

import (
	"time"
)

// KycStatus is the state of a seller's identity verification.
type KycStatus string

const (
	// KycNone means the seller never started verification
	KycNone KycStatus = "none"
	// KycPendingReview means documents were submitted and await review
	KycPendingReview KycStatus = "pending_review"
	// KycVerified means the identity provider confirmed the seller
	KycVerified KycStatus = "verified"
	// KycRejected means verification failed
	KycRejected KycStatus = "rejected"
)

// Seller holds the identity attributes the trust score is computed from.
// The score is a pure function of these fields plus SellerStats - no hidden state.
type Seller struct {
	ID               string
	AccountCreatedAt time.Time
	EmailVerified    bool
	PhoneVerified    bool
	KycStatus        KycStatus
}

// SellerStats are the aggregate counters supplied by the caller alongside
// the Seller snapshot (the score engine never reads storage itself).
type SellerStats struct {
	ListingsCount  int
	RatingsAverage float64 // 0-5
	RatingsCount   int
}

// ScoreBreakdown is the per-component decomposition of a trust score.
// Each component is worth at most 25 points.
type ScoreBreakdown struct {
	Identity   int `json:"identity"`
	History    int `json:"history"`
	Reviews    int `json:"reviews"`
	AccountAge int `json:"account_age"`
}

// Score is the result of a trust score computation.
type Score struct {
	Total     int            `json:"total"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ReportStatus is the lifecycle state of a vehicle history report order.
type ReportStatus string

const (
	// ReportPendingPayment is the initial state at creation
	ReportPendingPayment ReportStatus = "pending_payment"
	// ReportPaidAwaitingUpload is set by the reconciler once payment completes
	ReportPaidAwaitingUpload ReportStatus = "paid_awaiting_upload"
	// ReportReady is set externally once the document is uploaded
	ReportReady ReportStatus = "ready"
)

// Report is a paid vehicle history report tied to a listing.
// The reconciler performs exactly one transition: PendingPayment -> PaidAwaitingUpload.
type Report struct {
	ID        string
	ListingID string
	SessionID string // provider checkout session id, set when payment completes
	Status    ReportStatus
	UpdatedAt time.Time
}

// Order is a standalone report-style purchase that has no pre-created Report
// row. It is upserted keyed by the provider session id so event replay
// converges on a single row.
type Order struct {
	SessionID   string
	AmountCents int64
	Currency    string
	BuyerEmail  string
	BuyerName   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sponsorship is the paid-visibility window of a listing.
// SponsoredUntil is always now + duration at activation time, so replaying
// the activating event converges instead of stacking extensions.
type Sponsorship struct {
	ListingID      string
	IsSponsored    bool
	SponsoredUntil time.Time
	UpdatedAt      time.Time
}

// SponsorPayment is the audit row recorded when a sponsorship is activated.
// It is keyed by the provider session id and doubles as the idempotency
// marker for sponsor checkouts.
type SponsorPayment struct {
	SessionID    string
	ListingID    string
	DurationDays int
	AmountCents  int64
	Currency     string
	CreatedAt    time.Time
}

// Deposit is an escrow-style buyer deposit on a listing. Deposits are
// immutable once created; creation is keyed by the provider session id.
type Deposit struct {
	SessionID   string
	ListingID   string
	BuyerID     string
	SellerID    string
	AmountCents int64
	Currency    string
	CreatedAt   time.Time
}

// PlanState is a user's current subscription plan standing.
type PlanState struct {
	UserID            string
	SelectedPlan      Plan
	MaxListings       int
	PendingPlanChange *PendingPlanChange
	UpdatedAt         time.Time
}

// PendingPlanChange is a staged downgrade, committed later by the batch
// ApplyPendingPlanChanges operation.
type PendingPlanChange struct {
	NewPlan     Plan
	MaxListings int
	RequestedAt time.Time
}

// KycRecord is the persisted outcome of an identity verification session.
type KycRecord struct {
	UserID     string
	SessionID  string // provider verification session id
	Status     KycStatus
	VerifiedAt time.Time
}

// PayoutAccount carries the payment-capability flags of a seller's connected
// provider account, matched by the provider account id.
type PayoutAccount struct {
	AccountID      string
	ChargesEnabled bool
	PayoutsEnabled bool
	UpdatedAt      time.Time
}
