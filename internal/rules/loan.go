package rules

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/metrics"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// loanRequest is the state shared by the loan checks.
type loanRequest struct {
	member     *model.Member
	amount     float64
	loanTypeID int64
	now        time.Time
	months     int // whole calendar months since joining
}

type loanCheck func(e *Evaluator, ctx context.Context, req *loanRequest) ([]string, error)

// loanChecks run in this order; the order of violations follows it.
var loanChecks = []loanCheck{
	(*Evaluator).checkMembershipDuration,
	(*Evaluator).checkStatus,
	(*Evaluator).checkSavingsCompliance,
	(*Evaluator).checkLoanAmount,
	(*Evaluator).checkLoanType,
	(*Evaluator).checkExistingLoans,
	(*Evaluator).checkGuarantors,
}

// ValidateLoanEligibility returns every rule the requested loan violates.
// An empty result means the member is eligible. loanTypeID 0 skips the
// per-type cap.
func (e *Evaluator) ValidateLoanEligibility(ctx context.Context, memberID int64, amount float64, loanTypeID int64) ([]string, error) {
	violations, err := e.validateLoan(ctx, memberID, amount, loanTypeID)
	metrics.RecordEligibility("loan", len(violations), err)
	return violations, err
}

func (e *Evaluator) validateLoan(ctx context.Context, memberID int64, amount float64, loanTypeID int64) ([]string, error) {
	member, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get member", Err: err}
	}
	now := e.clock.Now()
	req := &loanRequest{
		member:     member,
		amount:     amount,
		loanTypeID: loanTypeID,
		now:        now,
		months:     model.MonthsBetween(member.JoinedAt, now),
	}

	violations := []string{}
	for _, check := range loanChecks {
		v, err := check(e, ctx, req)
		if err != nil {
			return nil, err
		}
		violations = append(violations, v...)
	}
	if len(violations) > 0 {
		e.logger.Debug("loan not eligible", "member", memberID, "amount", amount, "violations", len(violations))
	}
	return violations, nil
}

func (e *Evaluator) checkMembershipDuration(ctx context.Context, req *loanRequest) ([]string, error) {
	required := int(e.config.Int(ctx, configstore.KeyMinMembershipMonths, DefaultMinMembershipMonths))
	if req.months >= required {
		return nil, nil
	}
	return []string{fmt.Sprintf("Membership of %d %s is below the required %d months",
		req.months, plural(req.months, "month"), required)}, nil
}

func (e *Evaluator) checkStatus(ctx context.Context, req *loanRequest) ([]string, error) {
	var out []string
	if req.member.Status != model.MemberActive {
		out = append(out, fmt.Sprintf("Member status is %q; only active members may borrow", req.member.Status))
	}
	probation := int(e.config.Int(ctx, configstore.KeyProbationMonths, DefaultProbationMonths))
	if req.months < probation {
		out = append(out, fmt.Sprintf("Member is still within the %d-month probation period", probation))
	}
	return out, nil
}

func (e *Evaluator) checkSavingsCompliance(ctx context.Context, req *loanRequest) ([]string, error) {
	minimum := e.config.Decimal(ctx, configstore.KeyMinMandatorySavings, DefaultMinMandatorySavings)
	since := model.WindowStart(req.now, ComplianceWindowMonths)
	deposits, err := e.members.ListMandatoryDeposits(ctx, req.member.ID, since)
	if err != nil {
		return nil, &model.DataAccessError{Op: "list mandatory deposits", Err: err}
	}
	compliant := model.CompliantMonths(deposits, since, minimum)
	if compliant >= ComplianceWindowMonths {
		return nil, nil
	}
	return []string{fmt.Sprintf("Mandatory savings of at least %s were made in %d of the last %d months; every month is required",
		e.money(ctx, minimum), compliant, ComplianceWindowMonths)}, nil
}

func (e *Evaluator) checkLoanAmount(ctx context.Context, req *loanRequest) ([]string, error) {
	if req.amount <= 0 {
		return []string{"Requested loan amount must be greater than zero"}, nil
	}
	var out []string
	maxAmount := e.config.Decimal(ctx, configstore.KeyMaxLoanAmount, DefaultMaxLoanAmount)
	if req.amount > maxAmount {
		out = append(out, fmt.Sprintf("Requested amount %s exceeds the maximum loan amount of %s",
			e.money(ctx, req.amount), e.money(ctx, maxAmount)))
	}
	multiplier := e.config.Decimal(ctx, configstore.KeyLoanToSavingsMultiplier, DefaultLoanToSavingsMultiplier)
	if limit := req.member.DepositedSavings * multiplier; req.amount > limit {
		out = append(out, fmt.Sprintf("Requested amount %s exceeds %sx total savings of %s (limit %s)",
			e.money(ctx, req.amount), number(multiplier), e.money(ctx, req.member.DepositedSavings), e.money(ctx, limit)))
	}
	return out, nil
}

// checkLoanType applies LOAN_TYPE_LIMITS, a JSON object keyed by loan type
// ID holding {"max_amount": N}.
func (e *Evaluator) checkLoanType(ctx context.Context, req *loanRequest) ([]string, error) {
	if req.loanTypeID == 0 {
		return nil, nil
	}
	limits, ok := e.config.JSON(ctx, configstore.KeyLoanTypeLimits, nil).(map[string]any)
	if !ok {
		return nil, nil
	}
	limit, ok := limits[strconv.FormatInt(req.loanTypeID, 10)].(map[string]any)
	if !ok {
		return nil, nil
	}
	maxAmount, ok := limit["max_amount"].(float64)
	if !ok {
		e.logger.Warn("ignoring loan type limit without numeric max_amount", "loan_type", req.loanTypeID)
		return nil, nil
	}
	if req.amount <= maxAmount {
		return nil, nil
	}
	return []string{fmt.Sprintf("Requested amount %s exceeds the %s limit for loan type %d",
		e.money(ctx, req.amount), e.money(ctx, maxAmount), req.loanTypeID)}, nil
}

func (e *Evaluator) checkExistingLoans(ctx context.Context, req *loanRequest) ([]string, error) {
	summary, err := e.members.GetLoanSummary(ctx, req.member.ID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get loan summary", Err: err}
	}
	var out []string
	maxActive := int(e.config.Int(ctx, configstore.KeyMaxActiveLoans, DefaultMaxActiveLoans))
	if summary.Active >= maxActive {
		out = append(out, fmt.Sprintf("Member already has %d active %s; the limit is %d",
			summary.Active, plural(summary.Active, "loan"), maxActive))
	}
	if summary.Defaulted > 0 {
		out = append(out, fmt.Sprintf("Member has %d defaulted %s", summary.Defaulted, plural(summary.Defaulted, "loan")))
	}
	return out, nil
}

func (e *Evaluator) checkGuarantors(ctx context.Context, req *loanRequest) ([]string, error) {
	threshold := e.config.Decimal(ctx, configstore.KeyGuarantorThreshold, DefaultGuarantorThreshold)
	if req.amount < threshold {
		return nil, nil
	}
	required := int(e.config.Int(ctx, configstore.KeyMinGuarantors, DefaultMinGuarantors))
	found, err := e.members.CountActiveGuarantors(ctx, req.member.ID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "count guarantors", Err: err}
	}
	if found >= required {
		return nil, nil
	}
	return []string{fmt.Sprintf("Loans of %s or more require %d active %s; %d found",
		e.money(ctx, threshold), required, plural(required, "guarantor"), found)}, nil
}
