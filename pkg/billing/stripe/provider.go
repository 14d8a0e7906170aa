package stripe

import (
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
	"github.com/autrust/autrust-web-sub001/pkg/billing"
	"github.com/autrust/autrust-web-sub001/pkg/billing/internal"
)

const (
	providerName             = "stripe"
	defaultHTTPTimeout       = 10 * time.Second
	defaultRateLimitWindow   = time.Minute
	defaultRateLimitRequests = 100
	maxWebhookBodyBytes      = 256 * 1024

	// metadata keys carried on checkout sessions
	metaType        = "type"
	metaReportID    = "reportId"
	metaListingID   = "listingId"
	metaBuyerID     = "buyerId"
	metaSellerID    = "sellerId"
	metaUserID      = "userId"
	metaNewPlan     = "newPlan"
	metaMaxListings = "maxListings"
	metaDuration    = "duration"

	// metadata.type tags
	typeSponsor    = "sponsor"
	typeDeposit    = "deposit"
	typePlanChange = "plan_change"
)

// Config extends billing.Config with Stripe-specific options.
type Config struct {
	billing.Config // Base config (Manager, Logger, Metrics, ...)

	StripeAPIKey        string
	StripeWebhookSecret string

	// Currency for created checkout sessions (default: "eur").
	Currency string
}

// Provider implements the billing.Provider interface for Stripe. Its webhook
// handler is the single reconciliation entry point for payment, identity and
// payout-account events.
type Provider struct {
	manager       *autrust.Manager
	config        Config
	httpClient    *http.Client
	rateLimiter   *internal.RateLimiter
	webhookSecret []byte
	apiKey        string
	currency      string
	stripeClient  *stripe.Client
	logger        autrust.Logger
	metrics       billing.Metrics
}

// NewProvider creates a new Stripe payment provider.
func NewProvider(config Config) (*Provider, error) {
	if config.Manager == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	// Stripe-specific fields win over the base config ones.
	apiKey := strings.TrimSpace(config.StripeAPIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(config.APIKey)
	}
	if apiKey == "" {
		return nil, billing.ErrProviderNotConfigured
	}
	stripeClient := stripe.NewClient(apiKey)

	webhookSecret := []byte(strings.TrimSpace(config.StripeWebhookSecret))
	if len(webhookSecret) == 0 {
		webhookSecret = []byte(strings.TrimSpace(config.WebhookSecret))
	}

	currency := strings.ToLower(strings.TrimSpace(config.Currency))
	if currency == "" {
		currency = "eur"
	}

	logger := config.Logger
	if logger == nil {
		logger = &autrust.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	return &Provider{
		manager:       config.Manager,
		config:        config,
		httpClient:    httpClient,
		rateLimiter:   internal.NewRateLimiter(defaultRateLimitRequests, defaultRateLimitWindow),
		webhookSecret: webhookSecret,
		apiKey:        apiKey,
		currency:      currency,
		stripeClient:  stripeClient,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for Stripe webhooks.
func (p *Provider) WebhookHandler() http.Handler {
	handler := http.HandlerFunc(p.handleWebhook)
	return p.rateLimiter.Middleware(handler)
}
