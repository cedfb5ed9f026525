package claim_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-allocation/internal/auth"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/utils"

	"github.com/go-chi/chi/v5"
)

type ClaimService interface {
	BookClaim(ctx context.Context, eventID int64, quantity int, holderID int64) (*models.Claim, error)
	CancelClaim(ctx context.Context, claimID, requesterID int64) (*models.Claim, error)
}

type Handler struct {
	ClaimService ClaimService
	Logger       *logger.Logger
}

func NewHandler(svc ClaimService, log *logger.Logger) *Handler {
	return &Handler{ClaimService: svc, Logger: log}
}

// RegisterRoutes mounts the claim endpoints; r must already carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.Post("/", h.BookClaim)
		r.Delete("/{claimId}", h.CancelClaim)
	})
}

func (h *Handler) BookClaim(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req models.ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("BookClaim: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("BookClaim: invalid request: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	claim, err := h.ClaimService.BookClaim(r.Context(), req.EventID, req.Quantity, userID)
	if err != nil {
		status := utils.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("API", fmt.Sprintf("BookClaim: user %d event %d: %v", userID, req.EventID, err))
		}
		utils.WriteError(w, status, bookFailureMessage(status), err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Claim booked successfully", claim)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("BookClaim: failed to encode response: %v", err))
	}
}

func (h *Handler) CancelClaim(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	claimID, err := strconv.ParseInt(chi.URLParam(r, "claimId"), 10, 64)
	if err != nil || claimID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid claim id", err)
		return
	}

	claim, err := h.ClaimService.CancelClaim(r.Context(), claimID, userID)
	if err != nil {
		status := utils.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("API", fmt.Sprintf("CancelClaim: claim %d: %v", claimID, err))
		}
		utils.WriteError(w, status, "Could not cancel claim", err)
		return
	}

	resp := models.ClaimCancelledResponse{ClaimID: claim.ID, State: claim.State, EventID: claim.EventID}
	if err := utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Claim cancelled successfully", resp)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelClaim: failed to encode response: %v", err))
	}
}

func bookFailureMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Booking failed, service unavailable"
	case http.StatusConflict:
		return "Another booking is in progress, retry shortly"
	default:
		return "Could not book claim"
	}
}
