package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// checkoutKind is the decoded metadata.type tag of a completed checkout.
// Decoding happens once, here, so no branch re-derives the tag's meaning.
type checkoutKind int

const (
	checkoutOrder checkoutKind = iota // untagged report-style purchase
	checkoutSponsor
	checkoutDeposit
	checkoutPlanChange
)

func classifyCheckout(metadata map[string]string) checkoutKind {
	switch metadata[metaType] {
	case typeSponsor:
		return checkoutSponsor
	case typeDeposit:
		return checkoutDeposit
	case typePlanChange:
		return checkoutPlanChange
	default:
		return checkoutOrder
	}
}

// handleCheckoutCompleted applies the single state transition a completed
// checkout session corresponds to.
//
// Match order: explicit reportId metadata first, then a persisted report
// referencing this session id (at most one fallback match), then the
// metadata.type tag, and finally the standalone-order upsert.
func (p *Provider) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	metadata := session.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	if reportID := metadata[metaReportID]; reportID != "" {
		return p.reconcileReport(ctx, reportID, session.ID)
	}

	report, err := p.manager.GetReportBySession(ctx, session.ID)
	if err != nil && err != autrust.ErrReportNotFound {
		return err
	}
	if report != nil {
		return p.reconcileReport(ctx, report.ID, session.ID)
	}

	switch classifyCheckout(metadata) {
	case checkoutSponsor:
		return p.reconcileSponsor(ctx, &session, metadata)
	case checkoutDeposit:
		return p.reconcileDeposit(ctx, &session, metadata)
	case checkoutPlanChange:
		return p.reconcilePlanChange(ctx, metadata)
	default:
		return p.reconcileOrder(ctx, &session)
	}
}

// reconcileReport unlocks a paid report: PendingPayment -> PaidAwaitingUpload.
func (p *Provider) reconcileReport(ctx context.Context, reportID, sessionID string) error {
	if err := p.manager.MarkReportPaid(ctx, reportID, sessionID); err != nil {
		if err == autrust.ErrReportNotFound {
			p.logger.Warn("checkout references unknown report",
				autrust.Field{Key: "report_id", Value: reportID},
				autrust.Field{Key: "session_id", Value: sessionID},
			)
			p.metrics.RecordReconciliation(providerName, "report", "skipped")
			return nil
		}
		return err
	}
	p.metrics.RecordReconciliation(providerName, "report", "applied")
	return nil
}

// reconcileSponsor activates a sponsorship window. The sponsor payment row
// keyed by session id marks the event as already applied; the window itself
// is absolute (now + duration), so even an unmarked replay converges.
func (p *Provider) reconcileSponsor(
	ctx context.Context, session *stripe.CheckoutSession, metadata map[string]string,
) error {
	listingID := metadata[metaListingID]
	if listingID == "" {
		p.metrics.RecordReconciliation(providerName, "sponsorship", "skipped")
		return nil
	}

	existing, err := p.manager.GetSponsorPayment(ctx, session.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		p.metrics.RecordReconciliation(providerName, "sponsorship", "replayed")
		return nil
	}

	days := autrust.SponsorDurationDays(metadata[metaDuration])
	now := p.manager.Now(ctx)
	until := now.Add(time.Duration(days) * 24 * time.Hour)

	if err := p.manager.ActivateSponsorship(ctx, listingID, until); err != nil {
		return err
	}
	p.metrics.RecordReconciliation(providerName, "sponsorship", "applied")

	// Audit row is best-effort: a failure here must not fail the event, or
	// Stripe's retry would re-run the activation path.
	payment := &autrust.SponsorPayment{
		SessionID:    session.ID,
		ListingID:    listingID,
		DurationDays: days,
		AmountCents:  session.AmountTotal,
		Currency:     string(session.Currency),
		CreatedAt:    now,
	}
	if err := p.manager.RecordSponsorPayment(ctx, payment); err != nil && err != autrust.ErrSponsorPaymentExists {
		p.logger.Error("failed to record sponsor payment",
			autrust.Field{Key: "session_id", Value: session.ID},
			autrust.Field{Key: "listing_id", Value: listingID},
			autrust.Field{Key: "error", Value: err.Error()},
		)
	}
	return nil
}

// reconcileDeposit records exactly one deposit per completed checkout.
// Deposits are immutable; replay is a no-op.
func (p *Provider) reconcileDeposit(
	ctx context.Context, session *stripe.CheckoutSession, metadata map[string]string,
) error {
	listingID := metadata[metaListingID]
	buyerID := metadata[metaBuyerID]
	sellerID := metadata[metaSellerID]
	if listingID == "" || buyerID == "" || sellerID == "" {
		p.metrics.RecordReconciliation(providerName, "deposit", "skipped")
		return nil
	}

	deposit := &autrust.Deposit{
		SessionID:   session.ID,
		ListingID:   listingID,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		AmountCents: session.AmountTotal,
		Currency:    string(session.Currency),
		CreatedAt:   p.manager.Now(ctx),
	}
	if err := p.manager.CreateDeposit(ctx, deposit); err != nil {
		if err == autrust.ErrDepositExists {
			p.metrics.RecordReconciliation(providerName, "deposit", "replayed")
			return nil
		}
		return err
	}
	p.metrics.RecordReconciliation(providerName, "deposit", "applied")
	return nil
}

// reconcilePlanChange applies a paid plan change immediately and clears any
// staged change.
func (p *Provider) reconcilePlanChange(ctx context.Context, metadata map[string]string) error {
	userID := metadata[metaUserID]
	planName := metadata[metaNewPlan]
	if userID == "" || planName == "" {
		p.metrics.RecordReconciliation(providerName, "plan", "skipped")
		return nil
	}
	if !autrust.KnownPlan(planName) {
		p.logger.Warn("checkout carries unknown plan",
			autrust.Field{Key: "user_id", Value: userID},
			autrust.Field{Key: "new_plan", Value: planName},
		)
		p.metrics.RecordReconciliation(providerName, "plan", "skipped")
		return nil
	}

	maxListings := 0
	if raw := metadata[metaMaxListings]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			maxListings = parsed
		}
	}

	req := &autrust.PlanChangeRequest{
		UserID:      userID,
		NewPlan:     autrust.Plan(planName),
		MaxListings: maxListings,
	}
	if err := p.manager.ApplyPlanChange(ctx, req); err != nil {
		return err
	}
	p.metrics.RecordReconciliation(providerName, "plan", "applied")
	return nil
}

// reconcileOrder upserts a standalone report-style order keyed by session id.
// Insert amount/currency/contact fields when new, refresh contact fields when
// the row already exists; replay converges on one row either way.
func (p *Provider) reconcileOrder(ctx context.Context, session *stripe.CheckoutSession) error {
	order := &autrust.Order{
		SessionID:   session.ID,
		AmountCents: session.AmountTotal,
		Currency:    string(session.Currency),
	}
	if session.CustomerDetails != nil {
		order.BuyerEmail = session.CustomerDetails.Email
		order.BuyerName = session.CustomerDetails.Name
	}
	if err := p.manager.UpsertOrder(ctx, order); err != nil {
		return err
	}
	p.metrics.RecordReconciliation(providerName, "order", "applied")
	return nil
}

// handleIdentityVerified upserts the seller's KYC record to Verified. The
// most recent event's timestamp wins; status never regresses.
func (p *Provider) handleIdentityVerified(
	ctx context.Context, event *stripe.Event, eventTime time.Time,
) error {
	var verification stripe.IdentityVerificationSession
	if err := json.Unmarshal(event.Data.Raw, &verification); err != nil {
		return fmt.Errorf("failed to unmarshal verification session: %w", err)
	}

	userID := ""
	if verification.Metadata != nil {
		userID = verification.Metadata[metaUserID]
	}
	if userID == "" {
		p.metrics.RecordReconciliation(providerName, "kyc", "skipped")
		return nil
	}

	req := &autrust.KycVerification{
		UserID:     userID,
		SessionID:  verification.ID,
		VerifiedAt: eventTime,
	}
	if err := p.manager.UpsertKycVerified(ctx, req); err != nil {
		return err
	}
	p.metrics.RecordReconciliation(providerName, "kyc", "applied")
	return nil
}

// handleAccountUpdated propagates payout-capability flags from a connected
// account status change, matched by provider account id.
func (p *Provider) handleAccountUpdated(ctx context.Context, event *stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return fmt.Errorf("failed to unmarshal account: %w", err)
	}
	if account.ID == "" {
		p.metrics.RecordReconciliation(providerName, "payout", "skipped")
		return nil
	}

	update := &autrust.PayoutAccount{
		AccountID:      account.ID,
		ChargesEnabled: account.ChargesEnabled,
		PayoutsEnabled: account.PayoutsEnabled,
	}
	if err := p.manager.UpdatePayoutAccount(ctx, update); err != nil {
		return err
	}
	p.metrics.RecordReconciliation(providerName, "payout", "applied")
	return nil
}
