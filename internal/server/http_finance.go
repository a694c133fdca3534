package server

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// scheduleRequest is the JSON body for POST /v1/loans/schedule.
type scheduleRequest struct {
	Principal  float64 `json:"principal"`
	TermMonths int     `json:"term_months"`
	FirstDue   string  `json:"first_due"`
}

// handlePenalty handles GET /v1/loans/{id}/penalty?due_date=YYYY-MM-DD.
func (s *Server) handlePenalty(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r)
	if !ok {
		return
	}
	due, err := time.Parse(time.DateOnly, r.URL.Query().Get("due_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	result, err := s.finance.Penalty(r.Context(), loanID, due)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSchedule handles POST /v1/loans/schedule.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	firstDue, err := time.Parse(time.DateOnly, req.FirstDue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "first_due must be YYYY-MM-DD")
		return
	}

	schedule, err := s.finance.Schedule(r.Context(), req.Principal, req.TermMonths, firstDue)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// handleSavingsInterest handles GET /v1/savings/interest?balance=N.
func (s *Server) handleSavingsInterest(w http.ResponseWriter, r *http.Request) {
	balance, err := strconv.ParseFloat(r.URL.Query().Get("balance"), 64)
	if err != nil || balance < 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
		writeError(w, http.StatusBadRequest, "balance must be a non-negative number")
		return
	}
	writeJSON(w, http.StatusOK, s.finance.SavingsInterest(r.Context(), balance))
}
