package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/autrust/autrust-web-sub001/pkg/autrust"
)

const (
	levelLow     = "low"
	levelMedium  = "medium"
	levelHigh    = "high"
	maxUserIDLen = 255
)

// Handler provides read-only HTTP endpoints over the manager.
type Handler struct {
	config Config
}

// GetTrustScore returns the authenticated seller's trust score.
func (h *Handler) GetTrustScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	score, err := h.config.Manager.TrustScore(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("failed to compute trust score: %w", err), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, TrustScoreResponse{
		SellerID: userID,
		Total:    score.Total,
		Max:      100,
		Level:    scoreLevel(score.Total),
		Detail:   score.Breakdown,
	})
}

// GetPlan returns the authenticated user's plan standing, including the
// current listing usage and any staged downgrade.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	resp := PlanResponse{
		UserID: userID,
		Plan:   string(autrust.PlanStart),
	}

	state, err := h.config.Manager.GetPlanState(ctx, userID)
	if err != nil && err != autrust.ErrPlanNotFound {
		h.handleError(w, r, fmt.Errorf("failed to get plan state: %w", err), http.StatusInternalServerError)
		return
	}
	if state != nil {
		resp.Plan = string(state.SelectedPlan)
		resp.MaxListings = state.MaxListings
		if state.PendingPlanChange != nil {
			resp.PendingChange = &PendingPlanChange{
				NewPlan:     string(state.PendingPlanChange.NewPlan),
				MaxListings: state.PendingPlanChange.MaxListings,
				RequestedAt: state.PendingPlanChange.RequestedAt,
			}
		}
	}

	canCreate, err := h.config.Manager.CanCreateListing(ctx, userID)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("failed to check listing limit: %w", err), http.StatusInternalServerError)
		return
	}
	resp.CanCreate = canCreate

	stats, err := h.config.Manager.SellerStats(ctx, userID)
	if err == nil {
		resp.ListingsUsed = stats.ListingsCount
	}

	h.writeJSON(w, resp)
}

// GetReport returns the lifecycle state of a report. The report id comes from
// the report_id query parameter.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}

	reportID := r.URL.Query().Get("report_id")
	if reportID == "" {
		h.handleError(w, r, fmt.Errorf("report_id is required"), http.StatusBadRequest)
		return
	}

	report, err := h.config.Manager.GetReport(r.Context(), reportID)
	if err != nil {
		if err == autrust.ErrReportNotFound {
			h.handleError(w, r, fmt.Errorf("report not found"), http.StatusNotFound)
			return
		}
		h.handleError(w, r, fmt.Errorf("failed to get report: %w", err), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, ReportResponse{
		ReportID:  report.ID,
		ListingID: report.ListingID,
		Status:    string(report.Status),
		UpdatedAt: report.UpdatedAt,
	})
}

// GetSponsorship returns the sponsorship window of a listing. The listing id
// comes from the listing_id query parameter. A listing that was never
// sponsored is a valid, unsponsored response, not a 404.
func (h *Handler) GetSponsorship(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.userID(w, r); !ok {
		return
	}

	listingID := r.URL.Query().Get("listing_id")
	if listingID == "" {
		h.handleError(w, r, fmt.Errorf("listing_id is required"), http.StatusBadRequest)
		return
	}

	sponsorship, err := h.config.Manager.GetSponsorship(r.Context(), listingID)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("failed to get sponsorship: %w", err), http.StatusInternalServerError)
		return
	}

	resp := SponsorshipResponse{ListingID: listingID}
	if sponsorship != nil {
		now := h.config.Manager.Now(r.Context())
		resp.IsSponsored = sponsorship.IsSponsored && sponsorship.SponsoredUntil.After(now)
		until := sponsorship.SponsoredUntil
		resp.SponsoredUntil = &until
	}

	h.writeJSON(w, resp)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := h.config.GetUserID(r)
	if userID == "" {
		h.handleError(w, r, fmt.Errorf("user ID not found"), http.StatusUnauthorized)
		return "", false
	}
	if len(userID) > maxUserIDLen {
		h.handleError(w, r, fmt.Errorf("invalid user ID format"), http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

func scoreLevel(total int) string {
	switch {
	case total >= 70:
		return levelHigh
	case total >= 40:
		return levelMedium
	default:
		return levelLow
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return
	}
}

// handleError handles errors with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if h.config.OnError != nil {
		h.config.OnError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse := map[string]string{
		"error": err.Error(),
	}
	if encodeErr := json.NewEncoder(w).Encode(errorResponse); encodeErr != nil {
		_ = encodeErr
	}
}
