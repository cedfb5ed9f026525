package utils

import (
	"errors"
	"net/http"

	"ms-allocation/internal/models"
)

// StatusFor maps a service error to the HTTP status returned to callers.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrEventUnavailable),
		errors.Is(err, models.ErrEventNotFound),
		errors.Is(err, models.ErrClaimNotFound),
		errors.Is(err, models.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrQuotaLockBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrQuotaExceeded),
		errors.Is(err, models.ErrInsufficientCapacity),
		errors.Is(err, models.ErrAlreadyCancelled),
		errors.Is(err, models.ErrInvalidEvent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
