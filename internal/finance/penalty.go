package finance

import (
	"context"
	"math"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Penalty returns the late-payment penalty on loanID for an installment due
// on dueDate. Nothing accrues until the grace period has passed; from the
// day after it, every started overdue month costs penaltyRate percent of the
// monthly payment.
func (c *Calculator) Penalty(ctx context.Context, loanID int64, dueDate time.Time) (*PenaltyResult, error) {
	loan, err := c.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "get loan", Err: err}
	}

	grace := int(c.config.Int(ctx, configstore.KeyGracePeriodDays, DefaultGracePeriodDays))
	rate := c.config.Decimal(ctx, configstore.KeyLoanPenaltyRate, DefaultPenaltyRate)

	today := model.DateOnly(c.clock.Now())
	due := model.DateOnly(dueDate.In(today.Location()))
	boundary := due.AddDate(0, 0, grace)

	res := &PenaltyResult{
		LoanID:         loanID,
		DueDate:        due,
		GraceEnds:      boundary,
		MonthlyPayment: loan.MonthlyPayment,
		PenaltyRate:    rate,
	}
	if !today.After(boundary) {
		return res, nil
	}
	res.MonthsOverdue = MonthsOverdue(boundary, today)
	res.Amount = round2(loan.MonthlyPayment * rate / 100 * float64(res.MonthsOverdue))
	return res, nil
}

// PenaltyResult explains a penalty calculation.
type PenaltyResult struct {
	LoanID         int64     `json:"loan_id"`
	DueDate        time.Time `json:"due_date"`
	GraceEnds      time.Time `json:"grace_ends"`
	MonthlyPayment float64   `json:"monthly_payment"`
	PenaltyRate    float64   `json:"penalty_rate"`
	MonthsOverdue  int       `json:"months_overdue"`
	Amount         float64   `json:"amount"`
}

// MonthsOverdue counts penalty months from the end of the grace period to
// today: whole calendar months, plus one when more than 15 days remain, and
// at least one once the boundary has passed. Both arguments are dates.
func MonthsOverdue(boundary, today time.Time) int {
	if !today.After(boundary) {
		return 0
	}
	months := model.MonthsBetween(boundary, today)
	if today.Day() < boundary.Day() {
		months--
	}
	anchor := boundary.AddDate(0, months, 0)
	if anchor.After(today) {
		// AddDate overflowed a short month (e.g. Jan 31 + 1 month).
		months--
		anchor = boundary.AddDate(0, months, 0)
	}
	days := int(math.Round(today.Sub(anchor).Hours() / 24))
	if days > 15 {
		months++
	}
	return max(months, 1)
}
