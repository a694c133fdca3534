package finance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store/memstore"
)

const loanID = 11

var today = time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

func newCalculator(t *testing.T, now time.Time) (*Calculator, *configstore.Store, *memstore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	data := memstore.New()
	cfg := configstore.New(data, configstore.WithClock(clock.Fixed(now)), configstore.WithLogger(logger))
	defaults, err := configstore.Defaults()
	require.NoError(t, err)
	_, err = cfg.Seed(context.Background(), defaults, "test")
	require.NoError(t, err)

	data.PutLoan(model.Loan{ID: loanID, MemberID: 1, Principal: 120_000, MonthlyPayment: 12_000, Status: "disbursed"})
	return New(cfg, data, WithClock(clock.Fixed(now)), WithLogger(logger)), cfg, data
}

func TestPenalty_ThirtyDaysOverdue(t *testing.T) {
	calc, _, _ := newCalculator(t, today)

	res, err := calc.Penalty(context.Background(), loanID, today.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, res.MonthsOverdue)
	assert.Equal(t, 240.0, res.Amount)
}

func TestPenalty_GraceBoundary(t *testing.T) {
	calc, _, _ := newCalculator(t, today)
	ctx := context.Background()

	// Due seven days ago: today is the last day of grace.
	res, err := calc.Penalty(ctx, loanID, today.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Zero(t, res.Amount)
	assert.Zero(t, res.MonthsOverdue)

	res, err = calc.Penalty(ctx, loanID, today.AddDate(0, 0, -8))
	require.NoError(t, err)
	assert.Equal(t, 240.0, res.Amount)

	res, err = calc.Penalty(ctx, loanID, today.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Zero(t, res.Amount)
}

func TestPenalty_TimeOfDayIgnored(t *testing.T) {
	calc, _, _ := newCalculator(t, today)

	due := time.Date(2026, 5, 3, 23, 59, 0, 0, time.UTC)
	res, err := calc.Penalty(context.Background(), loanID, due)
	require.NoError(t, err)
	assert.Zero(t, res.Amount)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), res.GraceEnds)
}

func TestPenalty_FollowsConfig(t *testing.T) {
	calc, cfg, _ := newCalculator(t, today)
	ctx := context.Background()
	require.NoError(t, cfg.Set(ctx, configstore.KeyLoanPenaltyRate, 5, "admin"))
	require.NoError(t, cfg.Set(ctx, configstore.KeyGracePeriodDays, 0, "admin"))

	res, err := calc.Penalty(ctx, loanID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	// Feb 1 to May 10: three months and nine days.
	assert.Equal(t, 3, res.MonthsOverdue)
	assert.Equal(t, 1800.0, res.Amount)
}

func TestPenalty_Errors(t *testing.T) {
	calc, _, data := newCalculator(t, today)

	_, err := calc.Penalty(context.Background(), 999, today)
	assert.ErrorIs(t, err, model.ErrNotFound)

	data.SetErr(errors.New("down"))
	_, err = calc.Penalty(context.Background(), loanID, today)
	var dae *model.DataAccessError
	assert.ErrorAs(t, err, &dae)
}

func TestMonthsOverdue(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name     string
		boundary time.Time
		today    time.Time
		want     int
	}{
		{"not past", d(2026, 5, 10), d(2026, 5, 10), 0},
		{"one day", d(2026, 5, 10), d(2026, 5, 11), 1},
		{"fifteen days", d(2026, 5, 1), d(2026, 5, 16), 1},
		{"sixteen days", d(2026, 5, 1), d(2026, 5, 17), 1},
		{"one month exactly", d(2026, 4, 10), d(2026, 5, 10), 1},
		{"one month fifteen days", d(2026, 3, 10), d(2026, 4, 25), 1},
		{"one month sixteen days", d(2026, 3, 10), d(2026, 4, 26), 2},
		{"day before month end", d(2026, 3, 20), d(2026, 5, 19), 2},
		{"short month overflow", d(2026, 1, 31), d(2026, 3, 1), 1},
		{"year boundary", d(2025, 11, 5), d(2026, 2, 5), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MonthsOverdue(tt.boundary, tt.today))
		})
	}
}

func TestSavingsInterest(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		freq string
		want float64
	}{
		{FrequencyMonthly, 500},
		{FrequencyQuarterly, 1500},
		{FrequencyAnnually, 6000},
	}
	for _, tt := range tests {
		t.Run(tt.freq, func(t *testing.T) {
			calc, cfg, _ := newCalculator(t, today)
			require.NoError(t, cfg.Set(ctx, configstore.KeySavingsInterestRate, 5, "admin"))
			require.NoError(t, cfg.Set(ctx, configstore.KeySavingsCompoundFreq, tt.freq, "admin"))

			res := calc.SavingsInterest(ctx, 120_000)
			assert.Equal(t, tt.freq, res.Frequency)
			assert.InDelta(t, tt.want, res.Interest, 0.001)
		})
	}
}

func TestSavingsInterest_UnknownFrequencyFallsBackToMonthly(t *testing.T) {
	calc, _, data := newCalculator(t, today)
	ctx := context.Background()
	// Written behind the store's validation.
	require.NoError(t, data.UpdateConfigValue(ctx, configstore.KeySavingsCompoundFreq, "weekly", "dba", today))

	res := calc.SavingsInterest(ctx, 120_000)
	assert.Equal(t, FrequencyMonthly, res.Frequency)
	assert.InDelta(t, 500.0, res.Interest, 0.001)
}

func TestMonthlyPayment(t *testing.T) {
	ctx := context.Background()
	calc, cfg, _ := newCalculator(t, today)

	// Reducing balance at 12% over 12 months.
	got, err := calc.MonthlyPayment(ctx, 120_000, 12)
	require.NoError(t, err)
	assert.Equal(t, 10661.85, got)

	require.NoError(t, cfg.Set(ctx, configstore.KeyLoanInterestMethod, MethodFlat, "admin"))
	got, err = calc.MonthlyPayment(ctx, 120_000, 12)
	require.NoError(t, err)
	assert.Equal(t, 11200.0, got)

	require.NoError(t, cfg.Set(ctx, configstore.KeyLoanInterestRate, 0, "admin"))
	require.NoError(t, cfg.Set(ctx, configstore.KeyLoanInterestMethod, MethodReducing, "admin"))
	got, err = calc.MonthlyPayment(ctx, 120_000, 12)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, got)
}

func TestMonthlyPayment_InvalidInput(t *testing.T) {
	calc, _, _ := newCalculator(t, today)
	ctx := context.Background()

	for _, tc := range []struct {
		principal float64
		term      int
	}{
		{0, 12},
		{-5, 12},
		{1000, 0},
		{1000, 37},
	} {
		_, err := calc.MonthlyPayment(ctx, tc.principal, tc.term)
		assert.ErrorIs(t, err, model.ErrInvalidInput, "principal=%v term=%d", tc.principal, tc.term)
	}
}

func TestSchedule_RepaysPrincipalExactly(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	for _, method := range []string{MethodReducing, MethodFlat} {
		t.Run(method, func(t *testing.T) {
			calc, cfg, _ := newCalculator(t, today)
			require.NoError(t, cfg.Set(ctx, configstore.KeyLoanInterestMethod, method, "admin"))

			s, err := calc.Schedule(ctx, 100_000, 7, first)
			require.NoError(t, err)
			require.Len(t, s.Installments, 7)

			var principal float64
			for i, inst := range s.Installments {
				assert.Equal(t, i+1, inst.Number)
				assert.InDelta(t, inst.Payment, inst.Principal+inst.Interest, 0.005)
				principal += inst.Principal
			}
			assert.InDelta(t, 100_000.0, principal, 0.005)
			assert.Zero(t, s.Installments[6].Balance)
			assert.InDelta(t, s.TotalPayable, 100_000+s.TotalInterest, 0.005)

			assert.Equal(t, first, s.Installments[0].DueDate)
			assert.Equal(t, time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), s.Installments[1].DueDate)
		})
	}
}

func TestSchedule_ReducingInterestDeclines(t *testing.T) {
	calc, _, _ := newCalculator(t, today)

	s, err := calc.Schedule(context.Background(), 120_000, 12, today)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, s.Installments[0].Interest)
	for i := 1; i < len(s.Installments); i++ {
		assert.Less(t, s.Installments[i].Interest, s.Installments[i-1].Interest)
	}
}
