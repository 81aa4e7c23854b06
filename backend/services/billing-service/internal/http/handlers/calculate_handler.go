package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"evbilling/backend/services/billing-service/internal/service"
)

// NewCalculateHandler handles POST /billing/calculate, a fee estimate before a session exists.
func NewCalculateHandler(svc *service.BillingService) http.HandlerFunc {
	type request struct {
		Capacity     float64 `json:"capacity"`
		ChargingMode string  `json:"chargingMode"`
		StartTime    string  `json:"startTime"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Capacity <= 0 {
			writeError(w, http.StatusBadRequest, "capacity must be greater than 0")
			return
		}

		var start time.Time
		if s := strings.TrimSpace(req.StartTime); s != "" {
			parsed, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "startTime must be RFC3339")
				return
			}
			start = parsed
		}

		estimate, err := svc.Estimate(service.EstimateInput{
			Capacity:     req.Capacity,
			ChargingMode: strings.ToLower(strings.TrimSpace(req.ChargingMode)),
			StartTime:    start,
		})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, estimate)
	}
}
