package event_api

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

type EventService interface {
	CreateEvent(ctx context.Context, ownerID int64, req models.EventCreateRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID, requesterID int64) error
}

type Handler struct {
	EventService EventService
	Logger       *logger.Logger
}

func NewHandler(svc EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events", h.CreateEvent)
	r.Delete("/events/{eventId}", h.DeleteEvent)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserID(r.Context())

	var req models.EventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Also rejects event times without a zone offset.
		h.Logger.Warn("API", fmt.Sprintf("CreateEvent: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), ownerID, req)
	if err != nil {
		status := utils.StatusFor(err)
		message := "Could not create event"
		if status >= http.StatusInternalServerError {
			h.Logger.Error("API", fmt.Sprintf("CreateEvent: %v", err))
			message = "Failed to create event, service unavailable"
		}
		utils.WriteError(w, status, message, err)
		return
	}

	resp := models.EventCreatedResponse{EventID: event.ID, EventName: event.Name, Pools: len(event.Pools)}
	if err := utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created successfully", resp)); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateEvent: failed to encode response: %v", err))
	}
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil || eventID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	if err := h.EventService.DeleteEvent(r.Context(), eventID, userID); err != nil {
		status := utils.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("API", fmt.Sprintf("DeleteEvent: event %d: %v", eventID, err))
		}
		utils.WriteError(w, status, "Could not delete event", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event deleted successfully", map[string]int64{"event_id": eventID}))
}
