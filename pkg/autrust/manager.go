package autrust

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// PlanChangeMode classifies the outcome of a plan change request.
type PlanChangeMode string

const (
	// PlanChangeImmediate means the plan was applied without payment
	PlanChangeImmediate PlanChangeMode = "immediate"
	// PlanChangePaymentRequired means a checkout for the differential must
	// complete before the plan applies (via the payment event reconciler)
	PlanChangePaymentRequired PlanChangeMode = "payment_required"
	// PlanChangeDeferred means the downgrade was staged as a pending change
	PlanChangeDeferred PlanChangeMode = "deferred"
)

// PlanChangeDecision is the outcome of RequestPlanChange.
type PlanChangeDecision struct {
	Mode           PlanChangeMode
	AmountDueCents int64 // set only for PlanChangePaymentRequired
}

// Config holds manager configuration.
type Config struct {
	// Pricing controls upgrade differentials and the promo window.
	Pricing PlanPricing

	// ScoreCache caches computed trust scores (default: NoopScoreCache).
	ScoreCache ScoreCache

	// ScoreCacheTTL is the TTL for cached scores (default: 1 minute).
	ScoreCacheTTL time.Duration

	// ApplyConcurrency bounds the batch pending-plan-change commit
	// (default: 4).
	ApplyConcurrency int

	// Metrics tracks core operations (default: NoopMetrics).
	Metrics Metrics

	// Logger is used for structured logging (default: NoopLogger).
	Logger Logger
}

// Manager is the application-facing facade over a Store. It owns the trust
// score read path, plan change orchestration and listing-limit checks; the
// payment event reconciler drives its transition methods.
type Manager struct {
	store   Store
	config  Config
	cache   ScoreCache
	metrics Metrics
	logger  Logger
}

// NewManager creates a manager over the given store.
func NewManager(store Store, config Config) (*Manager, error) {
	if store == nil {
		return nil, ErrStorageUnavailable
	}

	if config.ScoreCacheTTL == 0 {
		config.ScoreCacheTTL = time.Minute
	}
	if config.ApplyConcurrency <= 0 {
		config.ApplyConcurrency = 4
	}
	if config.ScoreCache == nil {
		config.ScoreCache = &NoopScoreCache{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}

	return &Manager{
		store:   store,
		config:  config,
		cache:   config.ScoreCache,
		metrics: config.Metrics,
		logger:  config.Logger,
	}, nil
}

// Now returns the storage engine's clock when the store supports it, falling
// back to the application clock. Keeps sponsorship windows and promo checks
// consistent across application servers.
func (m *Manager) Now(ctx context.Context) time.Time {
	if ts, ok := m.store.(TimeSource); ok {
		if now, err := ts.Now(ctx); err == nil {
			return now.UTC()
		}
	}
	return time.Now().UTC()
}

// TrustScore computes (or serves from cache) the trust score of a seller.
// An unknown seller scores zero; that is not an error.
func (m *Manager) TrustScore(ctx context.Context, sellerID string) (Score, error) {
	if score, ok := m.cache.Get(sellerID); ok {
		m.metrics.RecordTrustScore(score.Total, true)
		return score, nil
	}

	seller, err := m.store.GetSeller(ctx, sellerID)
	if err != nil && err != ErrSellerNotFound {
		return Score{}, err
	}

	var stats SellerStats
	if seller != nil {
		stats, err = m.store.GetSellerStats(ctx, sellerID)
		if err != nil {
			return Score{}, err
		}
	}

	score := ComputeTrustScore(seller, stats, m.Now(ctx))
	m.cache.Set(sellerID, score, m.config.ScoreCacheTTL)
	m.metrics.RecordTrustScore(score.Total, false)
	return score, nil
}

// RequestPlanChange decides how a requested plan change is carried out:
// applied immediately, staged as a pending downgrade, or left to a checkout
// whose completion event applies it.
func (m *Manager) RequestPlanChange(
	ctx context.Context, userID string, newPlan Plan, maxListings int,
) (PlanChangeDecision, error) {
	if !KnownPlan(string(newPlan)) {
		return PlanChangeDecision{}, ErrUnknownPlan
	}
	if maxListings != 0 {
		if err := ValidateMaxListings(newPlan, maxListings); err != nil {
			return PlanChangeDecision{}, err
		}
	}

	currentPlan := Plan("")
	state, err := m.store.GetPlanState(ctx, userID)
	if err != nil && err != ErrPlanNotFound {
		return PlanChangeDecision{}, err
	}
	if state != nil {
		currentPlan = state.SelectedPlan
	}

	now := m.Now(ctx)

	if !IsUpgrade(currentPlan, newPlan) {
		change := &PendingPlanChange{
			NewPlan:     newPlan,
			MaxListings: maxListings,
			RequestedAt: now,
		}
		if err := m.store.SetPendingPlanChange(ctx, userID, change); err != nil {
			return PlanChangeDecision{}, err
		}
		m.metrics.RecordPlanChange(string(currentPlan), string(newPlan), string(PlanChangeDeferred))
		return PlanChangeDecision{Mode: PlanChangeDeferred}, nil
	}

	amount := m.config.Pricing.UpgradeAmountDueCents(currentPlan, newPlan, now)
	if amount > 0 {
		m.metrics.RecordPlanChange(string(currentPlan), string(newPlan), string(PlanChangePaymentRequired))
		return PlanChangeDecision{Mode: PlanChangePaymentRequired, AmountDueCents: amount}, nil
	}

	err = m.store.ApplyPlanChange(ctx, &PlanChangeRequest{
		UserID:      userID,
		NewPlan:     newPlan,
		MaxListings: maxListings,
		Now:         now,
	})
	if err != nil {
		return PlanChangeDecision{}, err
	}
	m.metrics.RecordPlanChange(string(currentPlan), string(newPlan), string(PlanChangeImmediate))
	return PlanChangeDecision{Mode: PlanChangeImmediate}, nil
}

// ApplyPendingPlanChanges commits every staged downgrade, clamping
// maxListings into the new plan's bounds when the previous value no longer
// fits. Returns the number of changes applied. Intended to run from an
// externally triggered batch job.
func (m *Manager) ApplyPendingPlanChanges(ctx context.Context) (int, error) {
	states, err := m.store.ListPendingPlanChanges(ctx)
	if err != nil {
		return 0, err
	}

	now := m.Now(ctx)
	var applied int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.ApplyConcurrency)

	for _, state := range states {
		if state.PendingPlanChange == nil {
			continue
		}
		g.Go(func() error {
			pending := state.PendingPlanChange
			maxListings := pending.MaxListings
			if maxListings == 0 {
				maxListings = state.MaxListings
			}
			req := &PlanChangeRequest{
				UserID:      state.UserID,
				NewPlan:     pending.NewPlan,
				MaxListings: ClampMaxListings(pending.NewPlan, maxListings),
				Now:         now,
			}
			if err := m.store.ApplyPlanChange(ctx, req); err != nil {
				m.logger.Error("failed to apply pending plan change",
					Field{Key: "user_id", Value: state.UserID},
					Field{Key: "new_plan", Value: string(pending.NewPlan)},
					Field{Key: "error", Value: err.Error()},
				)
				return err
			}
			atomic.AddInt64(&applied, 1)
			m.metrics.RecordPlanChange(string(state.SelectedPlan), string(pending.NewPlan), string(PlanChangeDeferred))
			return nil
		})
	}

	err = g.Wait()
	return int(atomic.LoadInt64(&applied)), err
}

// CanCreateListing reports whether the seller is below their plan's
// maxListings. Sellers without a plan get the START minimum.
func (m *Manager) CanCreateListing(ctx context.Context, userID string) (bool, error) {
	maxListings := planLimits[PlanStart].MinListings
	plan := PlanStart

	state, err := m.store.GetPlanState(ctx, userID)
	if err != nil && err != ErrPlanNotFound {
		return false, err
	}
	if state != nil {
		maxListings = state.MaxListings
		plan = state.SelectedPlan
	}

	stats, err := m.store.GetSellerStats(ctx, userID)
	if err != nil {
		return false, err
	}

	allowed := stats.ListingsCount < maxListings
	m.metrics.RecordListingLimitCheck(string(plan), allowed)
	return allowed, nil
}

// SellerStats retrieves the aggregate listing and rating counters of a seller.
func (m *Manager) SellerStats(ctx context.Context, sellerID string) (SellerStats, error) {
	return m.store.GetSellerStats(ctx, sellerID)
}

// GetPlanState retrieves a user's plan standing.
func (m *Manager) GetPlanState(ctx context.Context, userID string) (*PlanState, error) {
	return m.store.GetPlanState(ctx, userID)
}

// GetReport retrieves a report by id.
func (m *Manager) GetReport(ctx context.Context, reportID string) (*Report, error) {
	return m.store.GetReport(ctx, reportID)
}

// GetReportBySession retrieves the report referencing a checkout session id.
func (m *Manager) GetReportBySession(ctx context.Context, sessionID string) (*Report, error) {
	return m.store.GetReportBySession(ctx, sessionID)
}

// MarkReportPaid transitions a report to PaidAwaitingUpload. Replay-safe.
func (m *Manager) MarkReportPaid(ctx context.Context, reportID, sessionID string) error {
	return m.store.MarkReportPaid(ctx, reportID, sessionID, m.Now(ctx))
}

// UpsertOrder inserts or updates a standalone order keyed by session id.
func (m *Manager) UpsertOrder(ctx context.Context, order *Order) error {
	return m.store.UpsertOrder(ctx, order)
}

// GetSponsorship retrieves the sponsorship window of a listing.
func (m *Manager) GetSponsorship(ctx context.Context, listingID string) (*Sponsorship, error) {
	return m.store.GetSponsorship(ctx, listingID)
}

// GetSponsorPayment retrieves the sponsor payment audit row for a session id.
func (m *Manager) GetSponsorPayment(ctx context.Context, sessionID string) (*SponsorPayment, error) {
	return m.store.GetSponsorPayment(ctx, sessionID)
}

// ActivateSponsorship marks a listing sponsored until the given time.
func (m *Manager) ActivateSponsorship(ctx context.Context, listingID string, until time.Time) error {
	return m.store.ActivateSponsorship(ctx, listingID, until, m.Now(ctx))
}

// RecordSponsorPayment inserts the sponsorship audit row.
func (m *Manager) RecordSponsorPayment(ctx context.Context, payment *SponsorPayment) error {
	return m.store.RecordSponsorPayment(ctx, payment)
}

// CreateDeposit inserts a deposit keyed by session id.
func (m *Manager) CreateDeposit(ctx context.Context, deposit *Deposit) error {
	return m.store.CreateDeposit(ctx, deposit)
}

// GetDeposit retrieves a deposit by session id.
func (m *Manager) GetDeposit(ctx context.Context, sessionID string) (*Deposit, error) {
	return m.store.GetDeposit(ctx, sessionID)
}

// ApplyPlanChange applies a plan directly, clearing any pending change.
// Driven by the payment event reconciler once a plan checkout completes.
func (m *Manager) ApplyPlanChange(ctx context.Context, req *PlanChangeRequest) error {
	if req.Now.IsZero() {
		req.Now = m.Now(ctx)
	}
	return m.store.ApplyPlanChange(ctx, req)
}

// UpsertKycVerified upserts a verified KYC record and invalidates the
// seller's cached trust score.
func (m *Manager) UpsertKycVerified(ctx context.Context, req *KycVerification) error {
	if err := m.store.UpsertKycVerified(ctx, req); err != nil {
		return err
	}
	m.cache.Invalidate(req.UserID)
	return nil
}

// GetKycRecord retrieves a user's KYC record.
func (m *Manager) GetKycRecord(ctx context.Context, userID string) (*KycRecord, error) {
	return m.store.GetKycRecord(ctx, userID)
}

// UpdatePayoutAccount updates payment-capability flags by provider account id.
func (m *Manager) UpdatePayoutAccount(ctx context.Context, account *PayoutAccount) error {
	return m.store.UpdatePayoutAccount(ctx, account)
}
