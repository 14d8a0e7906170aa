// Package fiber provides Fiber middleware for listing-limit enforcement
package fiber

import (
	"github.com/gofiber/fiber/v2"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

// UserIDExtractor extracts the user ID from a Fiber context
// Return empty string if user is not authenticated
type UserIDExtractor func(c *fiber.Ctx) string

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
	OnLimitReached func(c *fiber.Ctx, state *autrust.PlanState) error

	// OnUnauthorized is called when user is not authenticated
	// If nil, returns 401 Unauthorized
	OnUnauthorized func(c *fiber.Ctx) error

	// OnError is called when an internal error occurs
	// If nil, returns 500 Internal Server Error
	OnError func(c *fiber.Ctx, err error) error
}

// Middleware creates a Fiber middleware that blocks listing creation once a
// seller has reached their plan's maxListings
func Middleware(cfg Config) fiber.Handler {
	// Validate required configuration at startup (fail fast)
	if cfg.Manager == nil {
		panic("autrust/fiber: Config.Manager is required")
	}
	if cfg.GetUserID == nil {
		panic("autrust/fiber: Config.GetUserID is required")
	}
	if cfg.LimitReachedStatusCode == 0 {
		cfg.LimitReachedStatusCode = fiber.StatusForbidden
	}

	return func(c *fiber.Ctx) error {
		userID := cfg.GetUserID(c)
		if userID == "" {
			if cfg.OnUnauthorized != nil {
				return cfg.OnUnauthorized(c)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}

		ctx := c.UserContext()
		allowed, err := cfg.Manager.CanCreateListing(ctx, userID)
		if err != nil {
			if cfg.OnError != nil {
				return cfg.OnError(c, err)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
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
			return c.Status(cfg.LimitReachedStatusCode).JSON(fiber.Map{
				"error":        "listing limit reached",
				"plan":         plan,
				"max_listings": maxListings,
			})
		}

		return c.Next()
	}
}

// FromHeader returns an UserIDExtractor that gets user ID from a header
func FromHeader(headerName string) UserIDExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

// FromLocals returns an UserIDExtractor that gets user ID from Fiber locals
// (set by an upstream auth middleware)
func FromLocals(key string) UserIDExtractor {
	return func(c *fiber.Ctx) string {
		if userID, ok := c.Locals(key).(string); ok {
			return userID
		}
		return ""
	}
}
