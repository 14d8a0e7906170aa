// Package gin provides Gin middleware for listing-limit enforcement
package gin

import (
	"net/http"

	gongin "github.com/gin-gonic/gin"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// UserIDExtractor extracts the user ID from a Gin context
// Return empty string if user is not authenticated
type UserIDExtractor func(c *gongin.Context) string

// Config holds middleware configuration
type Config struct {
	// Manager is the marketplace manager instance (required)
	Manager *autrust.Manager

	// GetUserID extracts user ID from context (required)
	GetUserID UserIDExtractor

	// LimitReachedStatusCode is the HTTP status code to return when the
	// seller is at their listing limit
	// Default: 403 (Forbidden)
	LimitReachedStatusCode int

	// OnLimitReached is called when the seller is at their listing limit
	// If nil, uses default response: LimitReachedStatusCode JSON with plan info
	OnLimitReached func(c *gongin.Context, state *autrust.PlanState)

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(c *gongin.Context)

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c *gongin.Context, err error)
}

// Middleware creates a Gin middleware that blocks listing creation once a
// seller has reached their plan's maxListings
func Middleware(cfg Config) gongin.HandlerFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Manager == nil {
		panic("autrust/gin: Config.Manager is required")
	}
	if cfg.GetUserID == nil {
		panic("autrust/gin: Config.GetUserID is required")
	}
	if cfg.LimitReachedStatusCode == 0 {
		cfg.LimitReachedStatusCode = http.StatusForbidden
	}

	return func(c *gongin.Context) {
		userID := cfg.GetUserID(c)
		if userID == "" {
			if cfg.OnUnauthorized != nil {
				cfg.OnUnauthorized(c)
				c.Abort()
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gongin.H{"error": "unauthorized"})
			}
			return
		}

		ctx := c.Request.Context()
		allowed, err := cfg.Manager.CanCreateListing(ctx, userID)
		if err != nil {
			if cfg.OnError != nil {
				cfg.OnError(c, err)
				c.Abort()
			} else {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gongin.H{"error": "internal error"})
			}
			return
		}

		if !allowed {
			state, _ := cfg.Manager.GetPlanState(ctx, userID)
			if cfg.OnLimitReached != nil {
				cfg.OnLimitReached(c, state)
				c.Abort()
			} else {
				plan := string(autrust.PlanStart)
				maxListings := 0
				if state != nil {
					plan = string(state.SelectedPlan)
					maxListings = state.MaxListings
				}
				c.AbortWithStatusJSON(cfg.LimitReachedStatusCode, gongin.H{
					"error":        "listing limit reached",
					"plan":         plan,
					"max_listings": maxListings,
				})
			}
			return
		}

		c.Next()
	}
}

// FromHeader returns an UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c *gongin.Context) string {
		return c.GetHeader(headerName)
	}
}

// FromContext returns an UserIDExtractor that gets user ID from the Gin
// context keys (set by an upstream auth middleware)
func FromContext(key string) UserIDExtractor {
	return func(c *gongin.Context) string {
		if userID, ok := c.Get(key); ok {
			if s, ok := userID.(string); ok {
				return s
			}
		}
		return ""
	}
}
