package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Store defines the persistence interface for business-rule configuration.
type Store interface {
	// Config entries
	ListConfigEntries(ctx context.Context) ([]*model.ConfigEntry, error)
	GetConfigEntry(ctx context.Context, key string) (*model.ConfigEntry, error)
	UpdateConfigValue(ctx context.Context, key, value, actor string, at time.Time) error
	InsertConfigEntry(ctx context.Context, entry *model.ConfigEntry) (bool, error) // false when the key already exists

	// Audit
	RecordConfigChange(ctx context.Context, change *model.ConfigChange) error
	ListConfigChanges(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}

// MemberReader is the read-only member data access used by the rule,
// finance and credit components. Missing members and loans return
// model.ErrNotFound.
type MemberReader interface {
	GetMember(ctx context.Context, memberID int64) (*model.Member, error)
	GetLoanSummary(ctx context.Context, memberID int64) (*model.LoanSummary, error)
	// CountActiveGuarantors counts distinct active guarantors pledged to the
	// member whose own membership is active.
	CountActiveGuarantors(ctx context.Context, memberID int64) (int, error)
	GetLoan(ctx context.Context, loanID int64) (*model.Loan, error)
	// ListMandatoryDeposits returns completed mandatory deposits made on or after since.
	ListMandatoryDeposits(ctx context.Context, memberID int64, since time.Time) ([]model.Deposit, error)
	// ListPaymentHistory returns completed and overdue schedule entries.
	ListPaymentHistory(ctx context.Context, memberID int64) ([]model.PaymentRecord, error)
}
