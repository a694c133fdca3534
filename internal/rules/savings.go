package rules

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/metrics"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// ValidateDeposit returns every rule a deposit into account would violate.
func (e *Evaluator) ValidateDeposit(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error) {
	violations, err := e.validateDeposit(ctx, memberID, amount, account)
	metrics.RecordEligibility("deposit", len(violations), err)
	return violations, err
}

func (e *Evaluator) validateDeposit(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error) {
	member, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get member", Err: err}
	}

	violations := []string{}
	if member.Status != model.MemberActive && member.Status != model.MemberProbation {
		violations = append(violations, fmt.Sprintf("Member status is %q; deposits require an active membership", member.Status))
	}
	if !account.IsValid() {
		violations = append(violations, fmt.Sprintf("Unknown savings account %q", account))
	}
	if amount <= 0 {
		violations = append(violations, "Deposit amount must be greater than zero")
	} else if minimum := e.config.Decimal(ctx, configstore.KeyMinDepositAmount, DefaultMinDepositAmount); amount < minimum {
		violations = append(violations, fmt.Sprintf("Deposit of %s is below the minimum deposit of %s",
			e.money(ctx, amount), e.money(ctx, minimum)))
	}
	return violations, nil
}

// ValidateWithdrawal returns every rule a withdrawal from account would violate.
func (e *Evaluator) ValidateWithdrawal(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error) {
	violations, err := e.validateWithdrawal(ctx, memberID, amount, account)
	metrics.RecordEligibility("withdrawal", len(violations), err)
	return violations, err
}

func (e *Evaluator) validateWithdrawal(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error) {
	member, err := e.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get member", Err: err}
	}

	violations := []string{}
	if member.Status != model.MemberActive {
		violations = append(violations, fmt.Sprintf("Member status is %q; only active members may withdraw", member.Status))
	}
	if !account.IsValid() {
		violations = append(violations, fmt.Sprintf("Unknown savings account %q", account))
		return violations, nil
	}
	if amount <= 0 {
		violations = append(violations, "Withdrawal amount must be greater than zero")
		return violations, nil
	}

	if account == model.AccountMandatory && !e.config.Bool(ctx, configstore.KeyAllowMandatoryWithdrawal, false) {
		violations = append(violations, "Withdrawals from mandatory savings are not allowed")
	}
	if balance := member.Balance(account); amount > balance {
		violations = append(violations, fmt.Sprintf("Withdrawal of %s exceeds the %s savings balance of %s",
			e.money(ctx, amount), account, e.money(ctx, balance)))
	}

	remaining := member.TotalSavings - amount
	if minimum := e.config.Decimal(ctx, configstore.KeyMinSavingsBalance, DefaultMinSavingsBalance); remaining < minimum {
		violations = append(violations, fmt.Sprintf("Total savings after withdrawal would be %s, below the minimum balance of %s",
			e.money(ctx, remaining), e.money(ctx, minimum)))
	}

	summary, err := e.members.GetLoanSummary(ctx, member.ID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get loan summary", Err: err}
	}
	if summary.Active > 0 {
		multiplier := e.config.Decimal(ctx, configstore.KeyLoanToSavingsMultiplier, DefaultLoanToSavingsMultiplier)
		if covered := remaining * multiplier; covered < summary.OutstandingBalance {
			violations = append(violations, fmt.Sprintf("Remaining savings would cover only %s of the %s outstanding loan balance",
				e.money(ctx, covered), e.money(ctx, summary.OutstandingBalance)))
		}
	}
	return violations, nil
}
