// Package finance computes loan penalties, savings interest and repayment
// schedules from the configured rates.
package finance

import (
	"context"
	"log/slog"
	"math"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Config is the read side of the config store used by the calculator.
type Config interface {
	Int(ctx context.Context, key string, def int64) int64
	Decimal(ctx context.Context, key string, def float64) float64
	String(ctx context.Context, key string, def string) string
}

// LoanReader loads the loan figures penalties are based on.
type LoanReader interface {
	GetLoan(ctx context.Context, loanID int64) (*model.Loan, error)
}

// Defaults applied when a key is missing from the config store.
const (
	DefaultGracePeriodDays     = 7
	DefaultPenaltyRate         = 2.0
	DefaultSavingsInterestRate = 5.0
	DefaultCompoundFrequency   = FrequencyMonthly
	DefaultLoanInterestRate    = 12.0
	DefaultInterestMethod      = MethodReducing
	DefaultMaxLoanTermMonths   = 36
)

// Calculator derives monetary amounts from config and loan data.
type Calculator struct {
	config Config
	loans  LoanReader
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock sets the clock penalties are measured against.
func WithClock(clk clock.Clock) Option {
	return func(c *Calculator) { c.clock = clk }
}

// WithLogger sets the calculator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// New returns a Calculator.
func New(config Config, loans LoanReader, opts ...Option) *Calculator {
	c := &Calculator{
		config: config,
		loans:  loans,
		clock:  clock.Real{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// round2 rounds to whole cents.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
