package fiber

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
	"github.com/autrust/autrust-web-sub001/storage/memory"
)

func setupTestManager(t *testing.T) (*autrust.Manager, *memory.Storage) {
	t.Helper()

	storage := memory.New()
	manager, err := autrust.NewManager(storage, autrust.Config{})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager, storage
}

func newTestApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Post("/listings", Middleware(cfg), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, userID string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/listings", http.NoBody)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test request failed: %v", err)
	}
	return resp
}

func TestMiddleware_Success(t *testing.T) {
	manager, storage := setupTestManager(t)
	err := manager.ApplyPlanChange(context.Background(), &autrust.PlanChangeRequest{
		UserID: "user1", NewPlan: autrust.PlanPro, MaxListings: 20,
	})
	if err != nil {
		t.Fatalf("ApplyPlanChange failed: %v", err)
	}
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 5})

	app := newTestApp(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	resp := doRequest(t, app, "user1")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusCreated {
		t.Errorf("Expected 201, got %d", resp.StatusCode)
	}
}

func TestMiddleware_Unauthorized(t *testing.T) {
	manager, _ := setupTestManager(t)

	app := newTestApp(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	resp := doRequest(t, app, "")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestMiddleware_LimitReached(t *testing.T) {
	manager, storage := setupTestManager(t)
	err := manager.ApplyPlanChange(context.Background(), &autrust.PlanChangeRequest{
		UserID: "user1", NewPlan: autrust.PlanStart, MaxListings: 1,
	})
	if err != nil {
		t.Fatalf("ApplyPlanChange failed: %v", err)
	}
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 1})

	app := newTestApp(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	resp := doRequest(t, app, "user1")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("Expected JSON error body")
	}
}

func TestMiddleware_CustomLimitStatusCode(t *testing.T) {
	manager, storage := setupTestManager(t)
	err := manager.ApplyPlanChange(context.Background(), &autrust.PlanChangeRequest{
		UserID: "user1", NewPlan: autrust.PlanStart, MaxListings: 1,
	})
	if err != nil {
		t.Fatalf("ApplyPlanChange failed: %v", err)
	}
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 1})

	app := newTestApp(Config{
		Manager:                manager,
		GetUserID:              FromHeader("X-User-ID"),
		LimitReachedStatusCode: fiber.StatusPaymentRequired,
	})

	resp := doRequest(t, app, "user1")
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusPaymentRequired {
		t.Errorf("Expected 402, got %d", resp.StatusCode)
	}
}

func TestMiddleware_PanicsOnMissingConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing GetUserID")
		}
	}()
	manager, _ := setupTestManager(t)
	Middleware(Config{Manager: manager})
}

func TestFromLocals(t *testing.T) {
	app := fiber.New()
	app.Post("/listings", func(c *fiber.Ctx) error {
		c.Locals("userID", "user1")
		if got := FromLocals("userID")(c); got != "user1" {
			t.Errorf("Expected user1, got %q", got)
		}
		if got := FromLocals("missing")(c); got != "" {
			t.Errorf("Expected empty for missing key, got %q", got)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/listings", http.NoBody))
	if err != nil {
		t.Fatalf("Test request failed: %v", err)
	}
	resp.Body.Close()
}
