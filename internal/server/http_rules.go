package server

import (
	"net/http"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// loanEligibilityRequest is the JSON body for POST /v1/members/{id}/eligibility/loan.
type loanEligibilityRequest struct {
	Amount     float64 `json:"amount"`
	LoanTypeID int64   `json:"loan_type_id"`
}

// savingsEligibilityRequest is the JSON body for the deposit and withdrawal checks.
type savingsEligibilityRequest struct {
	Amount  float64       `json:"amount"`
	Account model.Account `json:"account"`
}

// EligibilityResponse is returned by every eligibility endpoint.
type EligibilityResponse struct {
	MemberID   int64    `json:"member_id"`
	Eligible   bool     `json:"eligible"`
	Violations []string `json:"violations"`
}

// handleLoanEligibility handles POST /v1/members/{id}/eligibility/loan.
func (s *Server) handleLoanEligibility(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req loanEligibilityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	violations, err := s.rules.ValidateLoanEligibility(r.Context(), memberID, req.Amount, req.LoanTypeID)
	s.writeEligibility(w, r, memberID, violations, err)
}

// handleDepositEligibility handles POST /v1/members/{id}/eligibility/deposit.
func (s *Server) handleDepositEligibility(w http.ResponseWriter, r *http.Request) {
	memberID, req, ok := s.savingsRequest(w, r)
	if !ok {
		return
	}
	violations, err := s.rules.ValidateDeposit(r.Context(), memberID, req.Amount, req.Account)
	s.writeEligibility(w, r, memberID, violations, err)
}

// handleWithdrawalEligibility handles POST /v1/members/{id}/eligibility/withdrawal.
func (s *Server) handleWithdrawalEligibility(w http.ResponseWriter, r *http.Request) {
	memberID, req, ok := s.savingsRequest(w, r)
	if !ok {
		return
	}
	violations, err := s.rules.ValidateWithdrawal(r.Context(), memberID, req.Amount, req.Account)
	s.writeEligibility(w, r, memberID, violations, err)
}

func (s *Server) savingsRequest(w http.ResponseWriter, r *http.Request) (int64, savingsEligibilityRequest, bool) {
	var req savingsEligibilityRequest
	memberID, ok := pathID(w, r)
	if !ok {
		return 0, req, false
	}
	if !decodeBody(w, r, &req) {
		return 0, req, false
	}
	if req.Account == "" {
		req.Account = model.AccountVoluntary
	}
	return memberID, req, true
}

func (s *Server) writeEligibility(w http.ResponseWriter, r *http.Request, memberID int64, violations []string, err error) {
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if violations == nil {
		violations = []string{}
	}
	writeJSON(w, http.StatusOK, EligibilityResponse{
		MemberID:   memberID,
		Eligible:   len(violations) == 0,
		Violations: violations,
	})
}

// handleCreditScore handles GET /v1/members/{id}/credit-score.
func (s *Server) handleCreditScore(w http.ResponseWriter, r *http.Request) {
	memberID, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := s.credit.CreditScore(r.Context(), memberID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
