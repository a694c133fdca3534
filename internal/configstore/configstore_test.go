package configstore

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
	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store/memstore"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var _ clock.Clock = (*testClock)(nil)

func newClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
}

func floatPtr(f float64) *float64 { return &f }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func seededBackend(t *testing.T) *memstore.Store {
	t.Helper()
	ms := memstore.New()
	ms.PutEntry(model.ConfigEntry{Key: "MAX_ACTIVE_LOANS_PER_MEMBER", Value: "3", Type: model.ConfigTypeInteger, Category: "loans", Editable: true, Min: floatPtr(1), Max: floatPtr(20)})
	ms.PutEntry(model.ConfigEntry{Key: "LOAN_PENALTY_RATE", Value: "2.00", Type: model.ConfigTypeDecimal, Category: "loans", Editable: true, Min: floatPtr(0), Max: floatPtr(100)})
	ms.PutEntry(model.ConfigEntry{Key: "ALLOW_MANDATORY_WITHDRAWAL", Value: "false", Type: model.ConfigTypeBoolean, Category: "savings", Editable: true})
	ms.PutEntry(model.ConfigEntry{Key: "LOAN_TYPE_LIMITS", Value: `{"2":{"max_amount":250000}}`, Type: model.ConfigTypeJSON, Category: "loans", Editable: true})
	ms.PutEntry(model.ConfigEntry{Key: "SAVINGS_INTEREST_COMPOUND_FREQ", Value: "monthly", Type: model.ConfigTypeString, Category: "savings", Editable: true, Pattern: "^(monthly|quarterly|annually)$"})
	ms.PutEntry(model.ConfigEntry{Key: "CURRENCY_CODE", Value: "NGN", Type: model.ConfigTypeString, Category: "system", Editable: false, RequiresRestart: true})
	return ms
}

func newTestStore(t *testing.T, ms *memstore.Store, opts ...Option) (*Store, *testClock) {
	t.Helper()
	c := newClock()
	opts = append([]Option{WithClock(c), WithLogger(quietLogger()), WithOrigin("inst-test")}, opts...)
	return New(ms, opts...), c
}

func TestTypedReads(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seededBackend(t))

	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	assert.Equal(t, 2.0, s.Decimal(ctx, "LOAN_PENALTY_RATE", 0))
	assert.Equal(t, 3.0, s.Decimal(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0), "integers widen to decimals")
	assert.False(t, s.Bool(ctx, "ALLOW_MANDATORY_WITHDRAWAL", true))
	assert.Equal(t, "monthly", s.String(ctx, "SAVINGS_INTEREST_COMPOUND_FREQ", ""))

	limits, ok := s.JSON(ctx, "LOAN_TYPE_LIMITS", nil).(map[string]any)
	require.True(t, ok)
	assert.Contains(t, limits, "2")
}

func TestReadFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key", func(t *testing.T) {
		s, _ := newTestStore(t, seededBackend(t))
		assert.Equal(t, int64(6), s.Int(ctx, "NO_SUCH_KEY", 6))
		_, ok := s.Lookup(ctx, "NO_SUCH_KEY")
		assert.False(t, ok)
	})

	t.Run("type mismatch", func(t *testing.T) {
		s, _ := newTestStore(t, seededBackend(t))
		assert.Equal(t, int64(9), s.Int(ctx, "LOAN_PENALTY_RATE", 9))
		assert.True(t, s.Bool(ctx, "CURRENCY_CODE", true))
	})

	t.Run("backend down", func(t *testing.T) {
		ms := seededBackend(t)
		ms.SetErr(errors.New("connection refused"))
		s, _ := newTestStore(t, ms)
		assert.Equal(t, 1.5, s.Decimal(ctx, "LOAN_PENALTY_RATE", 1.5))
		assert.Empty(t, s.Category(ctx, "loans"))
		assert.False(t, s.Exists(ctx, "LOAN_PENALTY_RATE"))
		assert.Nil(t, s.Metadata(ctx, "LOAN_PENALTY_RATE"))

		_, err := s.Entries(ctx)
		var dae *model.DataAccessError
		assert.ErrorAs(t, err, &dae)
	})

	t.Run("unreadable stored value is skipped", func(t *testing.T) {
		ms := seededBackend(t)
		ms.PutEntry(model.ConfigEntry{Key: "BROKEN", Value: "{not json", Type: model.ConfigTypeJSON, Category: "loans"})
		s, _ := newTestStore(t, ms)
		assert.Equal(t, "fallback", s.JSON(ctx, "BROKEN", "fallback"))
		assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	})
}

func TestJSONReads_AreIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	s, _ := newTestStore(t, ms)

	first := s.JSON(ctx, "LOAN_TYPE_LIMITS", nil).(map[string]any)
	first["2"] = "changed"
	first["9"] = map[string]any{"max_amount": 1.0}

	v, ok := s.Lookup(ctx, "LOAN_TYPE_LIMITS")
	require.True(t, ok)
	looked, _ := v.JSON()
	looked.(map[string]any)["2"].(map[string]any)["max_amount"] = 0.0

	got := s.Get(ctx, "LOAN_TYPE_LIMITS", model.Value{}).Interface().(map[string]any)
	got["extra"] = true

	second := s.JSON(ctx, "LOAN_TYPE_LIMITS", nil)
	assert.Equal(t, map[string]any{"2": map[string]any{"max_amount": 250000.0}}, second)
	assert.Equal(t, 1, ms.ListCalls, "all reads served from one snapshot")
}

func TestSet_RejectsIntegerOverflow(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	ms.PutEntry(model.ConfigEntry{Key: "AUDIT_RETENTION_DAYS", Value: "365", Type: model.ConfigTypeInteger, Category: "system", Editable: true})
	s, _ := newTestStore(t, ms)

	for _, raw := range []any{"1e19", 1e19, "-1e19"} {
		err := s.Set(ctx, "AUDIT_RETENTION_DAYS", raw, "admin")
		assert.ErrorIs(t, err, model.ErrInvalidValue, "raw=%v", raw)
	}
	assert.Equal(t, int64(365), s.Int(ctx, "AUDIT_RETENTION_DAYS", 0))

	stored, err := ms.GetConfigEntry(ctx, "AUDIT_RETENTION_DAYS")
	require.NoError(t, err)
	assert.Equal(t, "365", stored.Value)
}

func TestGet_CachedWithinTTL(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	s, c := newTestStore(t, ms, WithTTL(time.Minute))

	first := s.Get(ctx, "LOAN_PENALTY_RATE", model.Value{})
	for i := 0; i < 5; i++ {
		c.Advance(10 * time.Second)
		assert.Equal(t, first, s.Get(ctx, "LOAN_PENALTY_RATE", model.Value{}))
	}
	assert.Equal(t, 1, ms.ListCalls)

	// A write behind the cache's back stays invisible until the TTL expires.
	require.NoError(t, ms.UpdateConfigValue(ctx, "LOAN_PENALTY_RATE", "4.00", "dba", c.Now()))
	assert.Equal(t, 2.0, s.Decimal(ctx, "LOAN_PENALTY_RATE", 0))

	c.Advance(11 * time.Second)
	assert.Equal(t, 4.0, s.Decimal(ctx, "LOAN_PENALTY_RATE", 0))
	assert.Equal(t, 2, ms.ListCalls)
}

func TestReloadFailure_ServesStaleValues(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	s, c := newTestStore(t, ms, WithTTL(time.Minute))

	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))

	ms.SetErr(errors.New("timeout"))
	c.Advance(2 * time.Minute)
	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	calls := ms.ListCalls

	// Failed reloads are retried at most every few seconds.
	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	assert.Equal(t, calls, ms.ListCalls)

	ms.SetErr(nil)
	c.Advance(maxRetryInterval)
	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	assert.Equal(t, calls+1, ms.ListCalls)
}

func TestCategoryExistsMetadata(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, seededBackend(t))

	loans := s.Category(ctx, "loans")
	assert.Len(t, loans, 3)
	assert.Contains(t, loans, "LOAN_TYPE_LIMITS")

	assert.True(t, s.Exists(ctx, "CURRENCY_CODE"))
	assert.False(t, s.Exists(ctx, "NOPE"))

	md := s.Metadata(ctx, "CURRENCY_CODE")
	require.NotNil(t, md)
	assert.False(t, md.Editable)
	assert.True(t, md.RequiresRestart)
	assert.Equal(t, model.ConfigTypeString, md.Type)

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 6)
	assert.Equal(t, "loans", entries[0].Category)
	assert.Equal(t, "system", entries[len(entries)-1].Category)
}

func TestSet_RoundTripsCanonicalValues(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		key  string
		raw  any
		want model.Value
		text string
	}{
		{"MAX_ACTIVE_LOANS_PER_MEMBER", "5", model.IntValue(5), "5"},
		{"MAX_ACTIVE_LOANS_PER_MEMBER", 4.0, model.IntValue(4), "4"},
		{"LOAN_PENALTY_RATE", 5, model.DecimalValue(5), "5.00"},
		{"LOAN_PENALTY_RATE", "2.5", model.DecimalValue(2.5), "2.50"},
		{"ALLOW_MANDATORY_WITHDRAWAL", "YES", model.BoolValue(true), "true"},
		{"ALLOW_MANDATORY_WITHDRAWAL", false, model.BoolValue(false), "false"},
		{"SAVINGS_INTEREST_COMPOUND_FREQ", "quarterly", model.StringValue("quarterly"), "quarterly"},
		{"LOAN_TYPE_LIMITS", `{ "3" : { "max_amount" : 100 } }`, model.JSONValue(map[string]any{"3": map[string]any{"max_amount": 100.0}}), `{"3":{"max_amount":100}}`},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.text, func(t *testing.T) {
			ms := seededBackend(t)
			s, _ := newTestStore(t, ms)

			require.NoError(t, s.Set(ctx, tt.key, tt.raw, "admin"))
			assert.Equal(t, tt.want, s.Get(ctx, tt.key, model.Value{}))

			stored, err := ms.GetConfigEntry(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.text, stored.Value)
			assert.Equal(t, "admin", stored.UpdatedBy)
		})
	}
}

func TestSet_Rejections(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		key  string
		raw  any
		want error
	}{
		{"unknown key", "NO_SUCH_KEY", "1", model.ErrUnknownKey},
		{"not editable", "CURRENCY_CODE", "USD", model.ErrNotEditable},
		{"below min", "LOAN_PENALTY_RATE", "-0.50", model.ErrInvalidValue},
		{"above max", "MAX_ACTIVE_LOANS_PER_MEMBER", 21, model.ErrInvalidValue},
		{"not integral", "MAX_ACTIVE_LOANS_PER_MEMBER", "2.5", model.ErrInvalidValue},
		{"pattern", "SAVINGS_INTEREST_COMPOUND_FREQ", "weekly", model.ErrInvalidValue},
		{"bad json", "LOAN_TYPE_LIMITS", "{", model.ErrInvalidValue},
		{"bad bool", "ALLOW_MANDATORY_WITHDRAWAL", "maybe", model.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := seededBackend(t)
			pub := &events.RecordingPublisher{}
			s, _ := newTestStore(t, ms, WithPublisher(pub))
			before := s.Get(ctx, tt.key, model.Value{})

			err := s.Set(ctx, tt.key, tt.raw, "admin")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var ce *model.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.key, ce.Key)
			if tt.want == model.ErrInvalidValue {
				assert.NotEmpty(t, ce.Reason, "rejected values carry a reason")
			} else {
				assert.Empty(t, ce.Reason)
			}

			assert.Equal(t, before, s.Get(ctx, tt.key, model.Value{}))
			assert.Equal(t, 1, ms.ListCalls, "failed writes must not invalidate the cache")
			assert.Empty(t, pub.Events)
		})
	}
}

func TestSet_AuditsAndPublishes(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	pub := &events.RecordingPublisher{}
	s, c := newTestStore(t, ms, WithPublisher(pub))

	require.NoError(t, s.Set(ctx, "LOAN_PENALTY_RATE", "3", "alice"))
	c.Advance(time.Hour)
	require.NoError(t, s.Set(ctx, "LOAN_PENALTY_RATE", "3.25", "bob"))

	history, err := s.History(ctx, "LOAN_PENALTY_RATE", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bob", history[0].Actor)
	assert.Equal(t, "3.00", history[0].OldValue)
	assert.Equal(t, "3.25", history[0].NewValue)
	assert.Equal(t, "2.00", history[1].OldValue)
	assert.Regexp(t, `^chg-`, history[0].ID)

	require.Len(t, pub.Events, 2)
	assert.Equal(t, events.TopicConfigUpdated, pub.Events[1].Topic)
	evt, ok := pub.Events[1].Event.(events.ConfigUpdated)
	require.True(t, ok)
	assert.Equal(t, "LOAN_PENALTY_RATE", evt.Key)
	assert.Equal(t, "3.25", evt.NewValue)
	assert.Equal(t, "inst-test", evt.Origin)

	_, err = s.History(ctx, "NO_SUCH_KEY", 10)
	assert.ErrorIs(t, err, model.ErrUnknownKey)
}

func TestSet_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	s, _ := newTestStore(t, ms)

	assert.Equal(t, int64(3), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	require.NoError(t, s.Set(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 2, "admin"))
	assert.Equal(t, int64(2), s.Int(ctx, "MAX_ACTIVE_LOANS_PER_MEMBER", 0))
	assert.Equal(t, 2, ms.ListCalls)
}

func TestSet_BackendFailure(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	s, _ := newTestStore(t, ms)
	ms.SetErr(errors.New("disk full"))

	err := s.Set(ctx, "LOAN_PENALTY_RATE", "3", "admin")
	var dae *model.DataAccessError
	assert.ErrorAs(t, err, &dae)
}

func TestSeed_InsertsOnlyMissing(t *testing.T) {
	ctx := context.Background()
	ms := seededBackend(t)
	pub := &events.RecordingPublisher{}
	s, _ := newTestStore(t, ms, WithPublisher(pub))

	defaults, err := Defaults()
	require.NoError(t, err)

	inserted, err := s.Seed(ctx, defaults, "seed")
	require.NoError(t, err)
	assert.NotContains(t, inserted, "LOAN_PENALTY_RATE")
	assert.Contains(t, inserted, "MIN_MEMBERSHIP_MONTHS")
	assert.Len(t, inserted, len(defaults)-6)

	// Existing values survive seeding.
	require.NoError(t, s.Set(ctx, "LOAN_PENALTY_RATE", "7", "admin"))
	again, err := s.Seed(ctx, defaults, "seed")
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 7.0, s.Decimal(ctx, "LOAN_PENALTY_RATE", 0))

	assert.Equal(t, events.TopicConfigSeeded, pub.Events[0].Topic)
}

func TestSeed_RejectsInvalidDefinitions(t *testing.T) {
	ctx := context.Background()
	ms := memstore.New()
	s, _ := newTestStore(t, ms)

	_, err := s.Seed(ctx, []*model.ConfigEntry{
		{Key: "GOOD", Value: "1", Type: model.ConfigTypeInteger, Category: "x"},
		{Key: "BAD", Value: "12", Type: model.ConfigTypeInteger, Category: "x", Max: floatPtr(10)},
	}, "seed")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, s.Exists(ctx, "GOOD"), "nothing is written when any definition is invalid")

	_, err = s.Seed(ctx, []*model.ConfigEntry{
		{Key: "DUP", Value: "1", Type: model.ConfigTypeInteger, Category: "x"},
		{Key: "DUP", Value: "2", Type: model.ConfigTypeInteger, Category: "x"},
	}, "seed")
	assert.ErrorContains(t, err, "duplicate key")
}

func TestDefaults_AreValid(t *testing.T) {
	defaults, err := Defaults()
	require.NoError(t, err)
	require.Len(t, defaults, 20)

	byKey := make(map[string]*model.ConfigEntry)
	for _, e := range defaults {
		require.NoError(t, model.ValidateConfigEntry(e), e.Key)
		byKey[e.Key] = e
	}
	assert.Equal(t, "5000.00", byKey[KeyMinMandatorySavings].Value)
	assert.Equal(t, "3.00", byKey[KeyLoanToSavingsMultiplier].Value)
	assert.False(t, byKey[KeyCurrencyCode].Editable)
	require.NotNil(t, byKey[KeyMaxActiveLoans].Min)
	assert.Equal(t, 1.0, *byKey[KeyMaxActiveLoans].Min)
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := ParseSeed([]byte("[[entry]]\nkey = \"A\"\nvalu = \"1\"\n"))
	assert.ErrorContains(t, err, "unknown field")
}
