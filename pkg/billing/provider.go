package billing

import (
	"net/http"
)

// Provider is the generic interface a payment backend must implement.
// Keeping the reconciler behind this interface lets the application add a
// second PSP without touching marketplace logic.
type Provider interface {
	// Name returns the provider name (e.g. "stripe").
	Name() string

	// WebhookHandler returns the HTTP handler that processes real-time
	// payment and identity events. The implementation handles signature
	// verification, parsing and state transitions internally.
	WebhookHandler() http.Handler
}
