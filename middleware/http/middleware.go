// Package http provides HTTP middleware for listing-limit enforcement
package http

import (
	"fmt"
	"net/http"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// UserIDExtractor extracts the user ID from an HTTP request
// Return empty string if user is not authenticated
type UserIDExtractor func(r *http.Request) string

// Config holds middleware configuration
type Config struct {
	// Manager is the marketplace manager instance (required)
	Manager *autrust.Manager

	// GetUserID extracts user ID from request (required)
	GetUserID UserIDExtractor

	// OnLimitReached is called when the seller is at their plan's listing
	// limit. If nil, returns 403 Forbidden
	OnLimitReached func(w http.ResponseWriter, r *http.Request, state *autrust.PlanState)

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(w http.ResponseWriter, r *http.Request)

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware creates an HTTP middleware that blocks listing creation once a
// seller has reached their plan's maxListings. Intended to wrap the
// listing-creation endpoint only; read endpoints never consult it.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := config.GetUserID(r)
			if userID == "" {
				if config.OnUnauthorized != nil {
					config.OnUnauthorized(w, r)
				} else {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
				}
				return
			}

			ctx := r.Context()
			allowed, err := config.Manager.CanCreateListing(ctx, userID)
			if err != nil {
				if config.OnError != nil {
					config.OnError(w, r, err)
				} else {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
				return
			}

			if !allowed {
				state, _ := config.Manager.GetPlanState(ctx, userID)
				if config.OnLimitReached != nil {
					config.OnLimitReached(w, r, state)
				} else {
					plan := autrust.PlanStart
					if state != nil {
						plan = state.SelectedPlan
					}
					msg := fmt.Sprintf("Listing limit reached for plan %s", plan)
					http.Error(w, msg, http.StatusForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerFunc creates an HTTP middleware that enforces listing limits (HandlerFunc version)
func HandlerFunc(config Config) func(http.HandlerFunc) http.HandlerFunc {
	middleware := Middleware(config)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			middleware(next).ServeHTTP(w, r)
		}
	}
}

// ContextKey is a type for context keys
type ContextKey string

const (
	// UserIDKey is the context key for user ID
	UserIDKey ContextKey = "autrust:userID"
)

// FromContext returns an UserIDExtractor that gets user ID from request context
func FromContext(key ContextKey) UserIDExtractor {
	return func(r *http.Request) string {
		if userID, ok := r.Context().Value(key).(string); ok {
			return userID
		}
		return ""
	}
}

// FromHeader returns an UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}
