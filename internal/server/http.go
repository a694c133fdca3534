package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/cooprules/internal/metrics"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and GET
// /metrics) must include a valid Authorization: Bearer <token> header.
// A nil limiter disables rate limiting.
func (s *Server) NewHTTPHandler(authToken string, limiter *RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/configs", s.handleListConfigs)
	mux.HandleFunc("GET /v1/configs/{key}", s.handleGetConfig)
	mux.HandleFunc("PUT /v1/configs/{key}", s.handleSetConfig)
	mux.HandleFunc("GET /v1/configs/{key}/history", s.handleConfigHistory)
	mux.HandleFunc("POST /v1/members/{id}/eligibility/loan", s.handleLoanEligibility)
	mux.HandleFunc("POST /v1/members/{id}/eligibility/deposit", s.handleDepositEligibility)
	mux.HandleFunc("POST /v1/members/{id}/eligibility/withdrawal", s.handleWithdrawalEligibility)
	mux.HandleFunc("GET /v1/members/{id}/credit-score", s.handleCreditScore)
	mux.HandleFunc("GET /v1/loans/{id}/penalty", s.handlePenalty)
	mux.HandleFunc("POST /v1/loans/schedule", s.handleSchedule)
	mux.HandleFunc("GET /v1/savings/interest", s.handleSavingsInterest)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = AuthMiddleware(authToken, mux)
	if limiter != nil {
		h = limiter.Handler(h)
	}
	h = RecoveryMiddleware(s.logger, h)
	return metrics.InstrumentHandler(h)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps an engine error onto an HTTP status and writes it.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	var dataErr *model.DataAccessError
	switch {
	case errors.Is(err, model.ErrUnknownKey), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotEditable):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidValue), errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &dataErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// pathID parses the {id} path value as a positive int64.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// decodeBody decodes the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
