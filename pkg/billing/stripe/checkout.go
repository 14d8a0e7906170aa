package stripe

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/autrust/autrust-web-sub001/pkg/billing"
)

// CheckoutParams describes a one-time payment checkout session to create.
// Metadata carries everything the webhook reconciler needs to apply the
// purchase, so the redirect flow stays stateless.
type CheckoutParams struct {
	ProductName string
	AmountCents int64
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CreateCheckout creates a Stripe Checkout Session for a one-time payment
// and returns its URL.
func (p *Provider) CreateCheckout(ctx context.Context, params CheckoutParams) (string, error) {
	startTime := time.Now()

	if params.AmountCents <= 0 {
		p.metrics.RecordAPICall(providerName, "/checkout/sessions", "invalid_amount")
		return "", fmt.Errorf("%w: %d", billing.ErrCheckoutAmountInvalid, params.AmountCents)
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(p.currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(params.ProductName),
					},
					UnitAmount: stripe.Int64(params.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	if len(params.Metadata) > 0 {
		sessionParams.Metadata = params.Metadata
	}

	session, err := p.stripeClient.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		p.metrics.RecordAPICall(providerName, "/checkout/sessions", "error")
		p.metrics.RecordAPICallDuration(providerName, "/checkout/sessions", time.Since(startTime))
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	p.metrics.RecordAPICall(providerName, "/checkout/sessions", "success")
	p.metrics.RecordAPICallDuration(providerName, "/checkout/sessions", time.Since(startTime))

	return session.URL, nil
}

// ReportCheckout creates a checkout session unlocking the given report.
func (p *Provider) ReportCheckout(
	ctx context.Context, reportID string, amountCents int64, successURL, cancelURL string,
) (string, error) {
	return p.CreateCheckout(ctx, CheckoutParams{
		ProductName: "Vehicle history report",
		AmountCents: amountCents,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata: map[string]string{
			metaReportID: reportID,
		},
	})
}

// SponsorCheckout creates a checkout session sponsoring a listing for the
// given number of days. Unrecognized durations fall back to the shortest
// window when the webhook applies the purchase.
func (p *Provider) SponsorCheckout(
	ctx context.Context, listingID string, durationDays int, amountCents int64, successURL, cancelURL string,
) (string, error) {
	return p.CreateCheckout(ctx, CheckoutParams{
		ProductName: fmt.Sprintf("Listing sponsorship (%d days)", durationDays),
		AmountCents: amountCents,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata: map[string]string{
			metaType:      typeSponsor,
			metaListingID: listingID,
			metaDuration:  strconv.Itoa(durationDays),
		},
	})
}

// DepositCheckout creates a checkout session for a buyer's reservation
// deposit on a listing.
func (p *Provider) DepositCheckout(
	ctx context.Context, listingID, buyerID, sellerID string, amountCents int64, successURL, cancelURL string,
) (string, error) {
	return p.CreateCheckout(ctx, CheckoutParams{
		ProductName: "Reservation deposit",
		AmountCents: amountCents,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata: map[string]string{
			metaType:      typeDeposit,
			metaListingID: listingID,
			metaBuyerID:   buyerID,
			metaSellerID:  sellerID,
		},
	})
}

// PlanUpgradeCheckout creates a checkout session for a paid plan upgrade.
// amountCents comes from the manager's plan change decision; the webhook
// applies the plan once payment completes.
func (p *Provider) PlanUpgradeCheckout(
	ctx context.Context, userID, newPlan string, maxListings int, amountCents int64, successURL, cancelURL string,
) (string, error) {
	metadata := map[string]string{
		metaType:    typePlanChange,
		metaUserID:  userID,
		metaNewPlan: newPlan,
	}
	if maxListings > 0 {
		metadata[metaMaxListings] = strconv.Itoa(maxListings)
	}
	return p.CreateCheckout(ctx, CheckoutParams{
		ProductName: fmt.Sprintf("Plan upgrade to %s", newPlan),
		AmountCents: amountCents,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata:    metadata,
	})
}
