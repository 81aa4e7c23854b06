package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"evbilling/backend/services/billing-service/internal/service"
)

// NewStatisticsHandler returns GET /admin/billing/statistics?startTime=&endTime=&pileId= handler.
func NewStatisticsHandler(svc *service.BillingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		from, err := time.Parse(time.RFC3339, query.Get("startTime"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "startTime must be RFC3339")
			return
		}
		to, err := time.Parse(time.RFC3339, query.Get("endTime"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "endTime must be RFC3339")
			return
		}

		stats, err := svc.Statistics(r.Context(), from, to, query.Get("pileId"))
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				logger.Error("failed to load billing statistics", zap.Error(err))
				writeError(w, status, "failed to load statistics")
				return
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
