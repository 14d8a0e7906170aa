package billing

import (
	"net/http"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// Config defines the standard configuration all providers accept.
type Config struct {
	// Manager is the marketplace manager whose state transitions the
	// provider's reconciler drives.
	Manager *autrust.Manager

	// WebhookSecret verifies incoming webhook requests.
	WebhookSecret string

	// APIKey is used for outbound API calls to the payment provider
	// (checkout session creation).
	APIKey string

	// HTTPClient is an optional HTTP client for API calls.
	// If nil, a default client with a 10s timeout is used.
	HTTPClient *http.Client

	// Logger is used for structured logging (default: NoopLogger).
	Logger autrust.Logger

	// Metrics is an optional metrics collector for webhook and API
	// operations. If nil, metrics are silently ignored.
	Metrics Metrics
}
