package transport

import (
	"errors"
	"net/http"

	"scanpos/internal/middleware"
	"scanpos/internal/repository"
	"scanpos/internal/service"
)

// APIResponse is the envelope every successful handler response uses.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	middleware.RespondWithJSON(w, statusCode, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondServiceError maps service and repository errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError

	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrAlertNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateBarcode):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrNonPositiveQuantity):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, err.Error(), map[string]interface{}{
			"barcode":   insufficient.Barcode,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
