package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"evbilling/backend/services/billing-service/internal/service"
)

// SessionStoppedHandler bills sessions reported as finished by the charging side.
type SessionStoppedHandler struct {
	service *service.BillingService
	logger  *zap.Logger
}

// NewSessionStoppedHandler builds handler.
func NewSessionStoppedHandler(service *service.BillingService, logger *zap.Logger) *SessionStoppedHandler {
	return &SessionStoppedHandler{
		service: service,
		logger:  logger,
	}
}

type sessionStoppedRequest struct {
	SessionID int64     `json:"session_id"`
	UserID    int64     `json:"user_id"`
	PileID    string    `json:"pile_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EnergyKWh float64   `json:"energy_kwh"`
}

// ServeHTTP handles POST /internal/ocpp/session-stopped.
func (h *SessionStoppedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req sessionStoppedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == 0 {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if req.StartTime.IsZero() {
		writeError(w, http.StatusBadRequest, "start_time required")
		return
	}

	bill, created, err := h.service.GenerateBill(r.Context(), service.GenerateBillInput{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		PileID:    req.PileID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  req.EnergyKWh,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to generate bill", zap.Int64("session_id", req.SessionID), zap.Error(err))
			writeError(w, status, "billing calculation failed")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, bill)
}
