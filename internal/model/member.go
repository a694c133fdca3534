package model

import "time"

// MemberStatus is the lifecycle state of a cooperative member.
type MemberStatus string

const (
	MemberActive     MemberStatus = "active"
	MemberProbation  MemberStatus = "probation"
	MemberSuspended  MemberStatus = "suspended"
	MemberInactive   MemberStatus = "inactive"
	MemberTerminated MemberStatus = "terminated"
)

// Account identifies a savings account category.
type Account string

const (
	AccountMandatory Account = "mandatory"
	AccountVoluntary Account = "voluntary"
)

// IsValid reports whether a is a known savings account category.
func (a Account) IsValid() bool {
	return a == AccountMandatory || a == AccountVoluntary
}

// Member is the read-only projection of a member consumed by the rules.
// The account balances and TotalSavings are completed deposits net of
// completed withdrawals. DepositedSavings sums completed deposits only and
// is the base for the loan-to-savings limit.
type Member struct {
	ID               int64        `json:"id"`
	JoinedAt         time.Time    `json:"joined_at"`
	Status           MemberStatus `json:"status"`
	MandatorySavings float64      `json:"mandatory_savings"`
	VoluntarySavings float64      `json:"voluntary_savings"`
	TotalSavings     float64      `json:"total_savings"`
	DepositedSavings float64      `json:"deposited_savings"`
}

// Balance returns the savings balance held in the given account.
func (m *Member) Balance(a Account) float64 {
	switch a {
	case AccountMandatory:
		return m.MandatorySavings
	case AccountVoluntary:
		return m.VoluntarySavings
	}
	return 0
}

// LoanSummary counts a member's loans by state.
type LoanSummary struct {
	MemberID int64 `json:"member_id"`
	// Active counts loans that are active, approved or disbursed.
	Active             int     `json:"active"`
	Defaulted          int     `json:"defaulted"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// Loan carries the figures the penalty calculator needs.
type Loan struct {
	ID             int64   `json:"id"`
	MemberID       int64   `json:"member_id"`
	Principal      float64 `json:"principal"`
	MonthlyPayment float64 `json:"monthly_payment"`
	Status         string  `json:"status"`
}

// Deposit is a completed mandatory-savings deposit.
type Deposit struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// PaymentRecord is one completed or overdue repayment schedule entry.
type PaymentRecord struct {
	DueDate time.Time  `json:"due_date"`
	PaidAt  *time.Time `json:"paid_at,omitempty"`
	Amount  float64    `json:"amount"`
	Status  string     `json:"status"`
}

// OnTime reports whether the payment was made on or before its due date.
// Dates compare by calendar day.
func (p PaymentRecord) OnTime() bool {
	if p.PaidAt == nil {
		return false
	}
	return !DateOnly(*p.PaidAt).After(DateOnly(p.DueDate))
}
