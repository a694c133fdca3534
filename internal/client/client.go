// Package client provides the interface the coop CLI uses to reach the rules
// engine, and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/finance"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// RulesClient is the interface that all coop CLI commands use to communicate
// with the rules engine server.
type RulesClient interface {
	// Config
	ListConfigs(ctx context.Context, category string) ([]*model.ConfigEntry, error)
	GetConfig(ctx context.Context, key string) (*model.ConfigEntry, error)
	SetConfig(ctx context.Context, key string, value any, actor string) (*model.ConfigEntry, error)
	ConfigHistory(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error)

	// Eligibility
	LoanEligibility(ctx context.Context, memberID int64, amount float64, loanTypeID int64) (*Eligibility, error)
	DepositEligibility(ctx context.Context, memberID int64, amount float64, account model.Account) (*Eligibility, error)
	WithdrawalEligibility(ctx context.Context, memberID int64, amount float64, account model.Account) (*Eligibility, error)

	// Calculations
	CreditScore(ctx context.Context, memberID int64) (*model.CreditScoreResult, error)
	Penalty(ctx context.Context, loanID int64, dueDate time.Time) (*finance.PenaltyResult, error)
	Schedule(ctx context.Context, principal float64, termMonths int, firstDue time.Time) (*finance.Schedule, error)
	SavingsInterest(ctx context.Context, balance float64) (*finance.InterestResult, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Eligibility is the outcome of an eligibility check. Violations is empty,
// never nil, when Eligible is true.
type Eligibility struct {
	MemberID   int64    `json:"member_id"`
	Eligible   bool     `json:"eligible"`
	Violations []string `json:"violations"`
}
