package echo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
	"github.com/autrust/autrust-web-sub001/storage/memory"
)

// Test helper to create a manager with a seeded plan
func setupTestManager(t *testing.T) (*autrust.Manager, *memory.Storage) {
	t.Helper()

	storage := memory.New()
	manager, err := autrust.NewManager(storage, autrust.Config{})
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager, storage
}

func setupPlan(t *testing.T, manager *autrust.Manager, userID string, plan autrust.Plan, maxListings int) {
	t.Helper()
	err := manager.ApplyPlanChange(context.Background(), &autrust.PlanChangeRequest{
		UserID: userID, NewPlan: plan, MaxListings: maxListings,
	})
	if err != nil {
		t.Fatalf("Failed to apply plan: %v", err)
	}
}

func newEchoRequest(userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/listings", http.NoBody)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okNext(c echo.Context) error {
	return c.String(http.StatusCreated, "created")
}

func TestMiddleware_Success(t *testing.T) {
	manager, storage := setupTestManager(t)
	setupPlan(t, manager, "user1", autrust.PlanPro, 20)
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 5})

	mw := Middleware(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	c, rec := newEchoRequest("user1")
	if err := mw(okNext)(c); err != nil {
		t.Fatalf("Middleware returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", rec.Code)
	}
}

func TestMiddleware_Unauthorized(t *testing.T) {
	manager, _ := setupTestManager(t)

	mw := Middleware(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	c, rec := newEchoRequest("")
	if err := mw(okNext)(c); err != nil {
		t.Fatalf("Middleware returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestMiddleware_LimitReached(t *testing.T) {
	manager, storage := setupTestManager(t)
	setupPlan(t, manager, "user1", autrust.PlanStart, 1)
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 1})

	mw := Middleware(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
	})

	c, rec := newEchoRequest("user1")
	if err := mw(okNext)(c); err != nil {
		t.Fatalf("Middleware returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestMiddleware_CustomLimitHandler(t *testing.T) {
	manager, storage := setupTestManager(t)
	setupPlan(t, manager, "user1", autrust.PlanStart, 1)
	storage.SetSellerStats("user1", autrust.SellerStats{ListingsCount: 1})

	var gotState *autrust.PlanState
	mw := Middleware(Config{
		Manager:   manager,
		GetUserID: FromHeader("X-User-ID"),
		OnLimitReached: func(c echo.Context, state *autrust.PlanState) error {
			gotState = state
			return c.NoContent(http.StatusPaymentRequired)
		},
	})

	c, rec := newEchoRequest("user1")
	if err := mw(okNext)(c); err != nil {
		t.Fatalf("Middleware returned error: %v", err)
	}
	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected 402, got %d", rec.Code)
	}
	if gotState == nil || gotState.SelectedPlan != autrust.PlanStart {
		t.Errorf("Expected plan state passed to handler, got %+v", gotState)
	}
}

func TestMiddleware_PanicsOnMissingConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing Manager")
		}
	}()
	Middleware(Config{GetUserID: FromHeader("X-User-ID")})
}

func TestFromContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/listings", http.NoBody)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("userID", "user1")

	if got := FromContext("userID")(c); got != "user1" {
		t.Errorf("Expected user1, got %q", got)
	}
	if got := FromContext("missing")(c); got != "" {
		t.Errorf("Expected empty for missing key, got %q", got)
	}
}
