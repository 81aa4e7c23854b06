package handlers

import (
	"net/http"

	"evbilling/backend/services/billing-service/internal/service"
)

// NewPricingHandler returns GET /billing/pricing handler listing the daily tariff periods.
func NewPricingHandler(svc *service.BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"periods": svc.Schedule(),
		})
	}
}
