// Package echo provides Echo middleware for listing-limit enforcement
package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// UserIDExtractor extracts the user ID from an Echo context
// Return empty string if user is not authenticated
type UserIDExtractor func(c echo.Context) string

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
	OnLimitReached func(c echo.Context, state *autrust.PlanState) error

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(c echo.Context) error

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c echo.Context, err error) error
}

// Middleware creates an Echo middleware that blocks listing creation once a
// seller has reached their plan's maxListings
func Middleware(cfg Config) echo.MiddlewareFunc {
	// Validate required configuration at startup (fail fast)
	if cfg.Manager == nil {
		panic("autrust/echo: Config.Manager is required")
	}
	if cfg.GetUserID == nil {
		panic("autrust/echo: Config.GetUserID is required")
	}
	if cfg.LimitReachedStatusCode == 0 {
		cfg.LimitReachedStatusCode = http.StatusForbidden
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := cfg.GetUserID(c)
			if userID == "" {
				if cfg.OnUnauthorized != nil {
					return cfg.OnUnauthorized(c)
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}

			ctx := c.Request().Context()
			allowed, err := cfg.Manager.CanCreateListing(ctx, userID)
			if err != nil {
				if cfg.OnError != nil {
					return cfg.OnError(c, err)
				}
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}

			if !allowed {
				state, _ := cfg.Manager.GetPlanState(ctx, userID)
				if cfg.OnLimitReached != nil {
					return cfg.OnLimitReached(c, state)
				}
				plan := string(autrust.PlanStart)
				maxListings := 0
				if state != nil {
					plan = string(state.SelectedPlan)
					maxListings = state.MaxListings
				}
				return c.JSON(cfg.LimitReachedStatusCode, map[string]interface{}{
					"error":        "listing limit reached",
					"plan":         plan,
					"max_listings": maxListings,
				})
			}

			return next(c)
		}
	}
}

// FromHeader returns an UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c echo.Context) string {
		return c.Request().Header.Get(headerName)
	}
}

// FromContext returns an UserIDExtractor that gets user ID from the Echo
// context (set by an upstream auth middleware)
func FromContext(key string) UserIDExtractor {
	return func(c echo.Context) string {
		if userID, ok := c.Get(key).(string); ok {
			return userID
		}
		return ""
	}
}
