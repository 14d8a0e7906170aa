package autrust

import (
	"context"
	"time"
)

// Store defines the persistence surface of the marketplace core.
// All methods use concrete types from this package to avoid import cycles.
//
// Every event-driven mutation is a keyed idempotent write: insert if absent
// by the stable key (session id, account id, user id), else update specific
// fields - never insert unconditionally. Transactional guarantees are owned
// by the implementation, not by callers.
type Store interface {
	// GetSeller retrieves a seller snapshot.
	// Returns ErrSellerNotFound when absent.
	GetSeller(ctx context.Context, sellerID string) (*Seller, error)

	// GetSellerStats retrieves the aggregate listing/rating counters used by
	// the trust score and listing-limit checks.
	GetSellerStats(ctx context.Context, sellerID string) (SellerStats, error)

	// GetReport retrieves a report by its id.
	// Returns ErrReportNotFound when absent.
	GetReport(ctx context.Context, reportID string) (*Report, error)

	// GetReportBySession retrieves the report referencing a checkout session
	// id. Returns ErrReportNotFound when absent.
	GetReportBySession(ctx context.Context, sessionID string) (*Report, error)

	// MarkReportPaid transitions a report from PendingPayment to
	// PaidAwaitingUpload and records the paying session id. A report already
	// past PendingPayment is left untouched and no error is returned, so
	// event replay converges.
	MarkReportPaid(ctx context.Context, reportID, sessionID string, now time.Time) error

	// UpsertOrder inserts a standalone order keyed by session id, or updates
	// the buyer contact fields of an existing one. Replay-safe: the same
	// session id always converges on a single row.
	UpsertOrder(ctx context.Context, order *Order) error

	// GetOrder retrieves a standalone order by session id.
	// Returns nil, nil when absent (absence is not an error).
	GetOrder(ctx context.Context, sessionID string) (*Order, error)

	// GetSponsorship retrieves the sponsorship window of a listing.
	// Returns nil, nil when the listing was never sponsored.
	GetSponsorship(ctx context.Context, listingID string) (*Sponsorship, error)

	// ActivateSponsorship marks a listing sponsored until the given absolute
	// time. The until value is computed by the caller as now + duration.
	ActivateSponsorship(ctx context.Context, listingID string, until, now time.Time) error

	// GetSponsorPayment retrieves the sponsor payment audit row for a session
	// id. Returns nil, nil when absent.
	GetSponsorPayment(ctx context.Context, sessionID string) (*SponsorPayment, error)

	// RecordSponsorPayment inserts the sponsorship audit row keyed by session
	// id. Returns ErrSponsorPaymentExists on replay.
	RecordSponsorPayment(ctx context.Context, payment *SponsorPayment) error

	// CreateDeposit inserts a deposit keyed by session id. Deposits are
	// immutable: there is no update path, and ErrDepositExists is returned
	// on replay.
	CreateDeposit(ctx context.Context, deposit *Deposit) error

	// GetDeposit retrieves a deposit by session id.
	// Returns nil, nil when absent.
	GetDeposit(ctx context.Context, sessionID string) (*Deposit, error)

	// GetPlanState retrieves a user's plan standing.
	// Returns ErrPlanNotFound when absent.
	GetPlanState(ctx context.Context, userID string) (*PlanState, error)

	// ApplyPlanChange sets the user's selected plan and maxListings and
	// clears any pending plan change. Naturally idempotent.
	ApplyPlanChange(ctx context.Context, req *PlanChangeRequest) error

	// SetPendingPlanChange stages a deferred plan change (downgrade) for the
	// user without touching the current plan.
	SetPendingPlanChange(ctx context.Context, userID string, change *PendingPlanChange) error

	// ListPendingPlanChanges returns the plan states carrying a staged
	// change, for the batch commit operation.
	ListPendingPlanChanges(ctx context.Context) ([]*PlanState, error)

	// UpsertKycVerified upserts the user's KYC record to Verified with the
	// given verification session id. The most recent event's VerifiedAt wins;
	// the status never regresses from Verified.
	UpsertKycVerified(ctx context.Context, req *KycVerification) error

	// GetKycRecord retrieves a user's KYC record.
	// Returns nil, nil when the user never started verification.
	GetKycRecord(ctx context.Context, userID string) (*KycRecord, error)

	// UpdatePayoutAccount updates the payment-capability flags matched by
	// provider account id.
	UpdatePayoutAccount(ctx context.Context, account *PayoutAccount) error
}

// PlanChangeRequest applies a plan to a user.
type PlanChangeRequest struct {
	UserID      string
	NewPlan     Plan
	MaxListings int // 0 means keep the current value
	Now         time.Time
}

// KycVerification upserts a verified KYC record.
type KycVerification struct {
	UserID     string
	SessionID  string
	VerifiedAt time.Time
}

// TimeSource is optionally implemented by Store backends that can supply the
// storage engine's clock, avoiding skew between application servers.
type TimeSource interface {
	Now(ctx context.Context) (time.Time, error)
}
