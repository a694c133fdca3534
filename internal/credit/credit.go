// Package credit derives an advisory credit score from repayment timeliness
// and mandatory savings consistency.
package credit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Scoring constants.
const (
	BaseScore = 500
	// PaymentWeight scales the on-time percentage's distance from 50%.
	PaymentWeight = 4.0
	// SavingsPointsPerMonth is awarded per compliant month, up to MaxSavingsBonus.
	SavingsPointsPerMonth = 8
	MaxSavingsBonus       = 100
	// SavingsWindowMonths is the trailing window checked for compliant months.
	SavingsWindowMonths = 12

	defaultMinMandatorySavings = 5000.0
)

// Config is the read side of the config store used by the scorer.
type Config interface {
	Decimal(ctx context.Context, key string, def float64) float64
}

// History is the member data the score is derived from.
type History interface {
	GetMember(ctx context.Context, memberID int64) (*model.Member, error)
	ListPaymentHistory(ctx context.Context, memberID int64) ([]model.PaymentRecord, error)
	ListMandatoryDeposits(ctx context.Context, memberID int64, since time.Time) ([]model.Deposit, error)
}

// Scorer computes credit scores.
type Scorer struct {
	config  Config
	history History
	clock   clock.Clock
	logger  *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the clock the savings window ends at.
func WithClock(c clock.Clock) Option {
	return func(s *Scorer) { s.clock = c }
}

// WithLogger sets the scorer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// New returns a Scorer.
func New(config Config, history History, opts ...Option) *Scorer {
	s := &Scorer{
		config:  config,
		history: history,
		clock:   clock.Real{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreditScore scores memberID. A member with no payment history is scored
// on savings alone. An unknown member is a DataAccessError wrapping
// model.ErrNotFound.
func (s *Scorer) CreditScore(ctx context.Context, memberID int64) (*model.CreditScoreResult, error) {
	if _, err := s.history.GetMember(ctx, memberID); err != nil {
		return nil, &model.DataAccessError{Op: "get member", Err: err}
	}

	payments, err := s.history.ListPaymentHistory(ctx, memberID)
	if err != nil {
		return nil, &model.DataAccessError{Op: "list payment history", Err: err}
	}

	minimum := s.config.Decimal(ctx, configstore.KeyMinMandatorySavings, defaultMinMandatorySavings)
	since := model.WindowStart(s.clock.Now(), SavingsWindowMonths)
	deposits, err := s.history.ListMandatoryDeposits(ctx, memberID, since)
	if err != nil {
		return nil, &model.DataAccessError{Op: "list mandatory deposits", Err: err}
	}

	onTime := 0
	for _, p := range payments {
		if p.OnTime() {
			onTime++
		}
	}
	var onTimePct float64
	if len(payments) > 0 {
		onTimePct = float64(onTime) / float64(len(payments)) * 100
	}
	compliant := model.CompliantMonths(deposits, since, minimum)

	score := Score(len(payments), onTimePct, compliant)
	res := &model.CreditScoreResult{
		MemberID:         memberID,
		Score:            score,
		Rating:           model.RatingFor(score),
		TotalPayments:    len(payments),
		OnTimePercentage: math.Round(onTimePct*100) / 100,
		CompliantMonths:  compliant,
	}
	s.logger.Debug("credit score computed", "member", memberID, "score", score, "payments", len(payments))
	return res, nil
}

// Score is the pure scoring function: the base score, adjusted by payment
// timeliness when there is any history, plus the savings bonus, clamped to
// [model.MinCreditScore, model.MaxCreditScore].
func Score(totalPayments int, onTimePct float64, compliantMonths int) int {
	score := float64(BaseScore)
	if totalPayments > 0 {
		score += (onTimePct - 50) * PaymentWeight
	}
	score += float64(min(MaxSavingsBonus, max(0, compliantMonths)*SavingsPointsPerMonth))
	score = math.Round(score)
	return int(math.Max(model.MinCreditScore, math.Min(model.MaxCreditScore, score)))
}
