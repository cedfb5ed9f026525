package analytics_api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"ms-allocation/internal/auth"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/utils"

	"github.com/go-chi/chi/v5"
)

type InventoryService interface {
	GetInventory(ctx context.Context, eventID, requesterID int64) (*models.InventorySnapshot, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service InventoryService
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service InventoryService, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{eventId}/inventory", h.GetInventory)
}

// GetInventory handles GET /events/{eventId}/inventory
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}
	h.Logger.Debug("ANALYTICS", fmt.Sprintf("GetInventory: event %d by user %d", eventID, userID))

	snap, err := h.Service.GetInventory(r.Context(), eventID, userID)
	if err != nil {
		status := utils.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("ANALYTICS", fmt.Sprintf("GetInventory: event %d: %v", eventID, err))
		}
		utils.WriteError(w, status, "Could not load inventory", err)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Inventory retrieved successfully", snap)); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("GetInventory: failed to encode response: %v", err))
	}
}
