package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/finance"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// ConfigService is the subset of the config store served over HTTP.
type ConfigService interface {
	Entries(ctx context.Context) ([]*model.ConfigEntry, error)
	Set(ctx context.Context, key string, raw any, actor string) error
	History(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error)
}

// Rules evaluates member eligibility.
type Rules interface {
	ValidateLoanEligibility(ctx context.Context, memberID int64, amount float64, loanTypeID int64) ([]string, error)
	ValidateDeposit(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error)
	ValidateWithdrawal(ctx context.Context, memberID int64, amount float64, account model.Account) ([]string, error)
}

// Calculator performs the loan and savings arithmetic.
type Calculator interface {
	Penalty(ctx context.Context, loanID int64, dueDate time.Time) (*finance.PenaltyResult, error)
	SavingsInterest(ctx context.Context, balance float64) *finance.InterestResult
	Schedule(ctx context.Context, principal float64, termMonths int, firstDue time.Time) (*finance.Schedule, error)
}

// Scorer computes member credit scores.
type Scorer interface {
	CreditScore(ctx context.Context, memberID int64) (*model.CreditScoreResult, error)
}

// Server exposes the rules engine over JSON/HTTP.
type Server struct {
	config  ConfigService
	rules   Rules
	finance Calculator
	credit  Scorer
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and panic logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a Server backed by the given engine components.
func New(config ConfigService, rules Rules, calc Calculator, scorer Scorer, opts ...Option) *Server {
	s := &Server{
		config:  config,
		rules:   rules,
		finance: calc,
		credit:  scorer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
