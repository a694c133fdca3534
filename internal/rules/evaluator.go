// Package rules evaluates loan, deposit and withdrawal eligibility against
// the configured business rules.
//
// Every check runs; violations are collected in check order so a caller can
// show the complete list at once. Violations are data, not errors: an error
// return always means member data could not be read.
package rules

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/store"
)

// Config is the read side of the config store used by the rules. Reads never
// fail; they return def when a value is unavailable.
type Config interface {
	Int(ctx context.Context, key string, def int64) int64
	Decimal(ctx context.Context, key string, def float64) float64
	Bool(ctx context.Context, key string, def bool) bool
	String(ctx context.Context, key string, def string) string
	JSON(ctx context.Context, key string, def any) any
}

// Defaults applied when a key is missing from the config store.
const (
	DefaultMinMembershipMonths     = 6
	DefaultProbationMonths         = 3
	DefaultMinMandatorySavings     = 5000.0
	DefaultMinDepositAmount        = 100.0
	DefaultMinSavingsBalance       = 1000.0
	DefaultMaxLoanAmount           = 5_000_000.0
	DefaultLoanToSavingsMultiplier = 3.0
	DefaultMaxActiveLoans          = 3
	DefaultGuarantorThreshold      = 500_000.0
	DefaultMinGuarantors           = 2
	DefaultCurrencyCode            = "NGN"

	// ComplianceWindowMonths is the trailing window in which every month
	// needs a qualifying mandatory deposit.
	ComplianceWindowMonths = 6
)

// Evaluator runs the eligibility checks.
type Evaluator struct {
	config  Config
	members store.MemberReader
	clock   clock.Clock
	logger  *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock sets the clock used for membership and savings windows.
func WithClock(c clock.Clock) Option {
	return func(e *Evaluator) { e.clock = c }
}

// WithLogger sets the evaluator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New returns an Evaluator reading thresholds from config and member data
// from members.
func New(config Config, members store.MemberReader, opts ...Option) *Evaluator {
	e := &Evaluator{
		config:  config,
		members: members,
		clock:   clock.Real{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
