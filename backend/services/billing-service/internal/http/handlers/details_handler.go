package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evbilling/backend/services/billing-service/internal/http/middleware"
	"evbilling/backend/services/billing-service/internal/models"
	"evbilling/backend/services/billing-service/internal/service"
)

const dateLayout = "2006-01-02"

// DetailsHandlers serve the caller's billing details.
type DetailsHandlers struct {
	service *service.BillingService
	logger  *zap.Logger
}

// NewDetailsHandlers returns handlers.
func NewDetailsHandlers(svc *service.BillingService, logger *zap.Logger) *DetailsHandlers {
	return &DetailsHandlers{service: svc, logger: logger}
}

// List handles GET /billing/details?startDate=&endDate=&page=&pageSize=.
func (h *DetailsHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	filter := models.BillingFilter{UserID: identity.UserID}

	if s := query.Get("startDate"); s != "" {
		from, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
		filter.From = &from
	}
	if s := query.Get("endDate"); s != "" {
		end, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
			return
		}
		// endDate is inclusive
		to := end.AddDate(0, 0, 1)
		filter.To = &to
	}

	var err error
	if filter.Page, err = intParam(query.Get("page")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	if filter.PageSize, err = intParam(query.Get("pageSize")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid pageSize")
		return
	}

	page, err := h.service.BillsForUser(r.Context(), filter)
	if err != nil {
		h.respondError(w, err, "failed to load billing details")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /billing/details/{detailId}. Only the owner or an admin may read a bill.
func (h *DetailsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(r.PathValue("detailId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid detail id")
		return
	}

	bill, err := h.service.BillByID(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "failed to load billing detail")
		return
	}
	if bill.UserID != identity.UserID && !identity.IsAdmin() {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (h *DetailsHandlers) respondError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
		writeError(w, status, message)
		return
	}
	writeError(w, status, err.Error())
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
