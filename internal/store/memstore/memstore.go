// Package memstore is an in-memory implementation of store.Store and
// store.MemberReader for tests and local tooling.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store"
)

// Store keeps config entries and member data in maps guarded by a mutex.
type Store struct {
	mu sync.Mutex

	entries map[string]*model.ConfigEntry
	changes []*model.ConfigChange

	members    map[int64]*model.Member
	summaries  map[int64]*model.LoanSummary
	guarantors map[int64]int
	loans      map[int64]*model.Loan
	deposits   map[int64][]model.Deposit
	payments   map[int64][]model.PaymentRecord

	// Err, when set, is returned by every method.
	Err error
	// ListCalls counts ListConfigEntries calls, for cache tests.
	ListCalls int
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.MemberReader = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		entries:    make(map[string]*model.ConfigEntry),
		members:    make(map[int64]*model.Member),
		summaries:  make(map[int64]*model.LoanSummary),
		guarantors: make(map[int64]int),
		loans:      make(map[int64]*model.Loan),
		deposits:   make(map[int64][]model.Deposit),
		payments:   make(map[int64][]model.PaymentRecord),
	}
}

// SetErr makes every subsequent call fail with err (nil clears it).
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// PutEntry stores a copy of e, replacing any existing entry with the same key.
func (s *Store) PutEntry(e model.ConfigEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = &e
}

// PutMember stores a member. TotalSavings is derived from the account
// balances; DepositedSavings defaults to it when unset, as for a member who
// has never withdrawn.
func (s *Store) PutMember(m model.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.TotalSavings = m.MandatorySavings + m.VoluntarySavings
	if m.DepositedSavings == 0 {
		m.DepositedSavings = m.TotalSavings
	}
	s.members[m.ID] = &m
}

// PutLoanSummary sets the active-loan summary returned for sum.MemberID.
func (s *Store) PutLoanSummary(sum model.LoanSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.MemberID] = &sum
}

// PutGuarantors sets how many loans memberID is actively guaranteeing.
func (s *Store) PutGuarantors(memberID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guarantors[memberID] = n
}

// PutLoan stores a copy of l keyed by its ID.
func (s *Store) PutLoan(l model.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[l.ID] = &l
}

// AddDeposit appends a mandatory deposit to memberID's history.
func (s *Store) AddDeposit(memberID int64, d model.Deposit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[memberID] = append(s.deposits[memberID], d)
}

// AddPayment appends a repayment to memberID's history.
func (s *Store) AddPayment(memberID int64, p model.PaymentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[memberID] = append(s.payments[memberID], p)
}

// ListConfigEntries returns copies of all entries ordered by category, then key.
func (s *Store) ListConfigEntries(_ context.Context) ([]*model.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]*model.ConfigEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (s *Store) GetConfigEntry(_ context.Context, key string) (*model.ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, model.ErrUnknownKey
	}
	cp := *e
	return &cp, nil
}

func (s *Store) UpdateConfigValue(_ context.Context, key, value, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	e, ok := s.entries[key]
	if !ok {
		return model.ErrUnknownKey
	}
	e.Value, e.UpdatedBy, e.UpdatedAt = value, actor, at
	return nil
}

func (s *Store) InsertConfigEntry(_ context.Context, entry *model.ConfigEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.entries[entry.Key]; ok {
		return false, nil
	}
	cp := *entry
	s.entries[entry.Key] = &cp
	return true, nil
}

func (s *Store) RecordConfigChange(_ context.Context, change *model.ConfigChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := *change
	s.changes = append(s.changes, &cp)
	return nil
}

func (s *Store) ListConfigChanges(_ context.Context, key string, limit int) ([]*model.ConfigChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*model.ConfigChange
	for i := len(s.changes) - 1; i >= 0; i-- {
		if s.changes[i].Key != key {
			continue
		}
		cp := *s.changes[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// RunInTransaction runs fn against the same store; there is no rollback.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *Store) Close() error { return nil }

func (s *Store) GetMember(_ context.Context, memberID int64) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	m, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", memberID, model.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) GetLoanSummary(_ context.Context, memberID int64) (*model.LoanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if sum, ok := s.summaries[memberID]; ok {
		cp := *sum
		return &cp, nil
	}
	return &model.LoanSummary{MemberID: memberID}, nil
}

func (s *Store) CountActiveGuarantors(_ context.Context, memberID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.guarantors[memberID], nil
}

func (s *Store) GetLoan(_ context.Context, loanID int64) (*model.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	l, ok := s.loans[loanID]
	if !ok {
		return nil, fmt.Errorf("loan %d: %w", loanID, model.ErrNotFound)
	}
	cp := *l
	return &cp, nil
}

func (s *Store) ListMandatoryDeposits(_ context.Context, memberID int64, since time.Time) ([]model.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Deposit
	for _, d := range s.deposits[memberID] {
		if !d.Date.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) ListPaymentHistory(_ context.Context, memberID int64) ([]model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]model.PaymentRecord(nil), s.payments[memberID]...), nil
}
