package finance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Interest methods for loan repayment.
const (
	MethodFlat     = "flat"
	MethodReducing = "reducing"
)

// Installment is one row of a repayment schedule. Balance is the principal
// still owed after the installment is paid.
type Installment struct {
	Number    int       `json:"number"`
	DueDate   time.Time `json:"due_date"`
	Payment   float64   `json:"payment"`
	Principal float64   `json:"principal"`
	Interest  float64   `json:"interest"`
	Balance   float64   `json:"balance"`
}

// Schedule is a complete repayment plan.
type Schedule struct {
	Principal      float64       `json:"principal"`
	TermMonths     int           `json:"term_months"`
	Method         string        `json:"method"`
	AnnualRate     float64       `json:"annual_rate"`
	MonthlyPayment float64       `json:"monthly_payment"`
	TotalInterest  float64       `json:"total_interest"`
	TotalPayable   float64       `json:"total_payable"`
	Installments   []Installment `json:"installments"`
}

type terms struct {
	method string
	rate   float64
}

func (c *Calculator) loanTerms(ctx context.Context, principal float64, termMonths int) (terms, error) {
	if principal <= 0 || math.IsNaN(principal) || math.IsInf(principal, 0) {
		return terms{}, fmt.Errorf("%w: principal must be greater than zero", model.ErrInvalidInput)
	}
	maxTerm := int(c.config.Int(ctx, configstore.KeyMaxLoanTermMonths, DefaultMaxLoanTermMonths))
	if termMonths < 1 || termMonths > maxTerm {
		return terms{}, fmt.Errorf("%w: term must be between 1 and %d months", model.ErrInvalidInput, maxTerm)
	}
	t := terms{
		method: c.config.String(ctx, configstore.KeyLoanInterestMethod, DefaultInterestMethod),
		rate:   c.config.Decimal(ctx, configstore.KeyLoanInterestRate, DefaultLoanInterestRate),
	}
	if t.method != MethodFlat && t.method != MethodReducing {
		c.logger.Warn("unknown interest method, using reducing balance", "method", t.method)
		t.method = MethodReducing
	}
	return t, nil
}

// MonthlyPayment returns the fixed monthly installment for a loan of
// principal repaid over termMonths.
func (c *Calculator) MonthlyPayment(ctx context.Context, principal float64, termMonths int) (float64, error) {
	t, err := c.loanTerms(ctx, principal, termMonths)
	if err != nil {
		return 0, err
	}
	return monthlyPayment(t, principal, termMonths), nil
}

func monthlyPayment(t terms, principal float64, n int) float64 {
	if t.method == MethodFlat {
		total := principal + principal*t.rate/100*float64(n)/12
		return round2(total / float64(n))
	}
	i := t.rate / 12 / 100
	if i == 0 {
		return round2(principal / float64(n))
	}
	return round2(principal * i / (1 - math.Pow(1+i, -float64(n))))
}

// Schedule returns the repayment plan with the first installment due on
// firstDue and one installment per month after it. The last installment
// absorbs rounding so the principal is repaid exactly.
func (c *Calculator) Schedule(ctx context.Context, principal float64, termMonths int, firstDue time.Time) (*Schedule, error) {
	t, err := c.loanTerms(ctx, principal, termMonths)
	if err != nil {
		return nil, err
	}
	payment := monthlyPayment(t, principal, termMonths)

	flatInterest := round2(principal * t.rate / 100 * float64(termMonths) / 12 / float64(termMonths))
	monthlyRate := t.rate / 12 / 100

	s := &Schedule{
		Principal:      principal,
		TermMonths:     termMonths,
		Method:         t.method,
		AnnualRate:     t.rate,
		MonthlyPayment: payment,
		Installments:   make([]Installment, 0, termMonths),
	}
	balance := principal
	for k := 0; k < termMonths; k++ {
		interest := flatInterest
		if t.method == MethodReducing {
			interest = round2(balance * monthlyRate)
		}
		principalPart := round2(payment - interest)
		if k == termMonths-1 || principalPart > balance {
			principalPart = round2(balance)
		}
		balance = round2(balance - principalPart)

		inst := Installment{
			Number:    k + 1,
			DueDate:   firstDue.AddDate(0, k, 0),
			Payment:   round2(principalPart + interest),
			Principal: principalPart,
			Interest:  interest,
			Balance:   balance,
		}
		s.Installments = append(s.Installments, inst)
		s.TotalInterest += interest
		s.TotalPayable += inst.Payment
	}
	s.TotalInterest = round2(s.TotalInterest)
	s.TotalPayable = round2(s.TotalPayable)
	return s, nil
}
