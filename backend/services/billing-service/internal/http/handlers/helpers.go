package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"evbilling/backend/services/billing-service/internal/service"
	"evbilling/backend/services/billing-service/internal/tariff"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBillNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrBillInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidChargingMode),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, tariff.ErrInvalidCapacity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
