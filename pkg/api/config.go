// Package api provides read-only HTTP endpoints for marketplace state:
// trust scores, plan standing, report status and sponsorship windows.
package api

import (
	"fmt"
	"net/http"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// Config holds configuration for the read API handler.
type Config struct {
	// Manager is the marketplace manager instance (required).
	Manager *autrust.Manager

	// GetUserID extracts the authenticated user id from an HTTP request
	// (required). Same extractor pattern as middleware/http.
	GetUserID func(*http.Request) string

	// OnError handles errors (auth, internal, etc.).
	// If nil, a default JSON error body is written.
	OnError func(http.ResponseWriter, *http.Request, error)

	// Logger is optional structured logging.
	Logger autrust.Logger
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Manager == nil {
		return fmt.Errorf("manager is required")
	}
	if c.GetUserID == nil {
		return fmt.Errorf("getUserID is required")
	}
	return nil
}

// NewHandler creates a new read API handler with the given configuration.
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Logger == nil {
		config.Logger = &autrust.NoopLogger{}
	}
	return &Handler{config: config}, nil
}

// FromHeader returns a GetUserID function that extracts the user id from a
// header.
func FromHeader(headerName string) func(*http.Request) string {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// FromContext returns a GetUserID function that extracts the user id from the
// request context. Uses the same context key pattern as middleware/http.
func FromContext(key interface{}) func(*http.Request) string {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}
