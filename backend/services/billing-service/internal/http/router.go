package httpserver

import (
	"net/http"

	"evbilling/backend/services/billing-service/internal/http/middleware"
)

// Routes groups HTTP handlers.
type Routes struct {
	SessionStopped http.Handler
	Calculate      http.HandlerFunc
	DetailsList    http.HandlerFunc
	DetailsGet     http.HandlerFunc
	Pricing        http.HandlerFunc
	Statistics     http.HandlerFunc
	Health         http.HandlerFunc
}

// NewRouter registers service endpoints. auth guards every caller-facing billing route.
func NewRouter(routes Routes, auth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	authenticated := func(handler http.Handler, extra ...func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(handler, append([]func(http.Handler) http.Handler{auth}, extra...)...)
	}

	if routes.SessionStopped != nil {
		mux.Handle("/internal/ocpp/session-stopped", method(http.MethodPost, routes.SessionStopped))
	}
	if routes.Calculate != nil {
		mux.Handle("/billing/calculate", method(http.MethodPost, authenticated(routes.Calculate)))
	}
	if routes.DetailsList != nil {
		mux.Handle("/billing/details", method(http.MethodGet, authenticated(routes.DetailsList)))
	}
	if routes.DetailsGet != nil {
		mux.Handle("/billing/details/{detailId}", method(http.MethodGet, authenticated(routes.DetailsGet)))
	}
	if routes.Pricing != nil {
		mux.Handle("/billing/pricing", method(http.MethodGet, routes.Pricing))
	}
	if routes.Statistics != nil {
		mux.Handle("/admin/billing/statistics", method(http.MethodGet, authenticated(routes.Statistics, middleware.RequireAdmin)))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
