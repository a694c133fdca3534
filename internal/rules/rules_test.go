package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/configstore"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store/memstore"
)

const memberID = 42

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	data   *memstore.Store
	config *configstore.Store
	eval   *Evaluator
}

// newFixture seeds the default configuration and an established member:
// joined ten months ago, active, a qualifying mandatory deposit in each of
// the last six months and 200,000 in total savings.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	data := memstore.New()
	cfg := configstore.New(data, configstore.WithClock(clock.Fixed(now)), configstore.WithLogger(logger))
	defaults, err := configstore.Defaults()
	require.NoError(t, err)
	_, err = cfg.Seed(ctx, defaults, "test")
	require.NoError(t, err)

	data.PutMember(model.Member{
		ID:               memberID,
		JoinedAt:         now.AddDate(0, -10, 0),
		Status:           model.MemberActive,
		MandatorySavings: 150_000,
		VoluntarySavings: 50_000,
	})
	for i := 0; i < 6; i++ {
		month := time.Date(2026, 5-time.Month(i), 5, 9, 0, 0, 0, time.UTC)
		data.AddDeposit(memberID, model.Deposit{Amount: 5000, Date: month})
	}

	eval := New(cfg, data, WithClock(clock.Fixed(now)), WithLogger(logger))
	return &fixture{data: data, config: cfg, eval: eval}
}

func (f *fixture) loan(t *testing.T, amount float64) []string {
	t.Helper()
	v, err := f.eval.ValidateLoanEligibility(context.Background(), memberID, amount, 0)
	require.NoError(t, err)
	return v
}

func TestLoanEligibility_EligibleMember(t *testing.T) {
	f := newFixture(t)
	v := f.loan(t, 400_000)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func TestLoanEligibility_ExceedsSavingsMultiple(t *testing.T) {
	f := newFixture(t)
	f.data.PutGuarantors(memberID, 2)

	v := f.loan(t, 700_000)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "3x total savings")
	assert.Contains(t, v[0], "NGN 600,000.00")
}

func TestLoanEligibility_LimitUsesDepositedSavings(t *testing.T) {
	f := newFixture(t)
	f.data.PutGuarantors(memberID, 2)
	// 200,000 deposited in total, 100,000 since withdrawn.
	f.data.PutMember(model.Member{
		ID:               memberID,
		JoinedAt:         now.AddDate(0, -10, 0),
		Status:           model.MemberActive,
		MandatorySavings: 100_000,
		DepositedSavings: 200_000,
	})

	assert.Empty(t, f.loan(t, 550_000), "limit is 3x deposits, not 3x the net balance")

	v := f.loan(t, 650_000)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "NGN 600,000.00")
}

func TestLoanEligibility_CollectsEveryViolationInOrder(t *testing.T) {
	f := newFixture(t)
	f.data.PutMember(model.Member{ID: 7, JoinedAt: now.AddDate(0, -1, 0), Status: model.MemberProbation, VoluntarySavings: 1000})
	f.data.PutLoanSummary(model.LoanSummary{MemberID: 7, Active: 3, Defaulted: 1})

	v, err := f.eval.ValidateLoanEligibility(context.Background(), 7, 6_000_000, 0)
	require.NoError(t, err)

	wantPrefixes := []string{
		"Membership of 1 month is below",
		"Member status is \"probation\"",
		"Member is still within the 3-month probation period",
		"Mandatory savings of at least NGN 5,000.00 were made in 0 of the last 6 months",
		"Requested amount NGN 6,000,000.00 exceeds the maximum loan amount",
		"Requested amount NGN 6,000,000.00 exceeds 3x total savings",
		"Member already has 3 active loans; the limit is 3",
		"Member has 1 defaulted loan",
		"Loans of NGN 500,000.00 or more require 2 active guarantors; 0 found",
	}
	require.Len(t, v, len(wantPrefixes), strings.Join(v, "\n"))
	for i, prefix := range wantPrefixes {
		assert.True(t, strings.HasPrefix(v[i], prefix), "violation %d = %q, want prefix %q", i, v[i], prefix)
	}
}

func TestLoanEligibility_GuarantorThresholdBoundary(t *testing.T) {
	f := newFixture(t)

	v := f.loan(t, 500_000)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "guarantors")

	assert.Empty(t, f.loan(t, 499_999))

	f.data.PutGuarantors(memberID, 2)
	assert.Empty(t, f.loan(t, 500_000))
}

func TestLoanEligibility_SavingsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.data.PutGuarantors(memberID, 2)

	hasRatioViolation := func(v []string) bool {
		for _, s := range v {
			if strings.Contains(s, "total savings") {
				return true
			}
		}
		return false
	}

	const amount = 900_000
	previous := true
	for _, savings := range []float64{0, 100_000, 250_000, 299_999, 300_000, 450_000, 1_000_000} {
		f.data.PutMember(model.Member{ID: memberID, JoinedAt: now.AddDate(0, -10, 0), Status: model.MemberActive, VoluntarySavings: savings})
		got := hasRatioViolation(f.loan(t, amount))
		if got && !previous {
			t.Fatalf("savings %.0f introduced a loan-to-savings violation", savings)
		}
		previous = got
	}
	assert.False(t, previous)
}

func TestLoanEligibility_SavingsCompliance(t *testing.T) {
	f := newFixture(t)
	f.data.PutMember(model.Member{ID: 8, JoinedAt: now.AddDate(-2, 0, 0), Status: model.MemberActive, MandatorySavings: 200_000})
	// Five compliant months, one short deposit, and an old deposit outside the window.
	for i := 0; i < 5; i++ {
		f.data.AddDeposit(8, model.Deposit{Amount: 6000, Date: time.Date(2026, 5-time.Month(i), 1, 0, 0, 0, 0, time.UTC)})
	}
	f.data.AddDeposit(8, model.Deposit{Amount: 4999, Date: time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)})
	f.data.AddDeposit(8, model.Deposit{Amount: 9000, Date: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)})

	v, err := f.eval.ValidateLoanEligibility(context.Background(), 8, 100_000, 0)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "made in 5 of the last 6 months")
}

func TestLoanEligibility_LoanTypeCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.config.Set(ctx, configstore.KeyLoanTypeLimits, `{"2":{"max_amount":250000}}`, "admin"))

	v, err := f.eval.ValidateLoanEligibility(ctx, memberID, 300_000, 2)
	require.NoError(t, err)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "limit for loan type 2")

	v, err = f.eval.ValidateLoanEligibility(ctx, memberID, 300_000, 3)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestLoanEligibility_ConfigChangeAppliesOnNextCall(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.loan(t, 400_000))

	require.NoError(t, f.config.Set(context.Background(), configstore.KeyMaxLoanAmount, 300_000, "admin"))
	v := f.loan(t, 400_000)
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "maximum loan amount of NGN 300,000.00")
}

func TestLoanEligibility_DataAccessErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.eval.ValidateLoanEligibility(context.Background(), 999, 1000, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)

	f.data.SetErr(errors.New("connection reset"))
	v, err := f.eval.ValidateLoanEligibility(context.Background(), memberID, 1000, 0)
	assert.Nil(t, v)
	var dae *model.DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "get member", dae.Op)
}

func TestValidateDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.data.PutMember(model.Member{ID: 9, JoinedAt: now, Status: model.MemberSuspended})

	tests := []struct {
		name    string
		member  int64
		amount  float64
		account model.Account
		want    []string
	}{
		{"ok", memberID, 5000, model.AccountMandatory, nil},
		{"exact minimum", memberID, 100, model.AccountVoluntary, nil},
		{"below minimum", memberID, 99.99, model.AccountVoluntary, []string{"below the minimum deposit of NGN 100.00"}},
		{"zero", memberID, 0, model.AccountVoluntary, []string{"greater than zero"}},
		{"bad account", memberID, 500, "fixed", []string{"Unknown savings account"}},
		{"suspended", 9, 50, model.AccountVoluntary, []string{"deposits require an active membership", "below the minimum"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := f.eval.ValidateDeposit(ctx, tt.member, tt.amount, tt.account)
			require.NoError(t, err)
			require.Len(t, v, len(tt.want), strings.Join(v, "\n"))
			for i, want := range tt.want {
				assert.Contains(t, v[i], want)
			}
		})
	}
}

func TestValidateWithdrawal(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		amount  float64
		account model.Account
		want    []string
	}{
		{"voluntary ok", nil, 20_000, model.AccountVoluntary, nil},
		{"mandatory blocked", nil, 10_000, model.AccountMandatory, []string{"mandatory savings are not allowed"}},
		{"mandatory allowed", allowMandatory, 10_000, model.AccountMandatory, nil},
		{"exceeds account", nil, 60_000, model.AccountVoluntary, []string{"exceeds the voluntary savings balance of NGN 50,000.00"}},
		{
			"minimum balance",
			func(t *testing.T, f *fixture) {
				allowMandatory(t, f)
				f.data.PutMember(model.Member{ID: memberID, JoinedAt: now.AddDate(-1, 0, 0), Status: model.MemberActive, MandatorySavings: 200_000})
			},
			199_500, model.AccountMandatory, []string{"Total savings after withdrawal would be NGN 500.00"},
		},
		{
			"loan coverage",
			func(t *testing.T, f *fixture) {
				f.data.PutLoanSummary(model.LoanSummary{MemberID: memberID, Active: 1, OutstandingBalance: 500_000})
			},
			40_000, model.AccountVoluntary, []string{"outstanding loan balance"},
		},
		{"zero", nil, 0, model.AccountVoluntary, []string{"greater than zero"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			v, err := f.eval.ValidateWithdrawal(ctx, memberID, tt.amount, tt.account)
			require.NoError(t, err)
			require.Len(t, v, len(tt.want), strings.Join(v, "\n"))
			for i, want := range tt.want {
				assert.Contains(t, v[i], want)
			}
		})
	}
}

func allowMandatory(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.config.Set(context.Background(), configstore.KeyAllowMandatoryWithdrawal, true, "admin"))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "3", number(3))
	assert.Equal(t, "2.5", number(2.5))
	assert.Equal(t, "20", number(20))
	assert.Equal(t, "1,000", number(1000))
}
