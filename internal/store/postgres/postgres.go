// Package postgres implements the store.Store and store.MemberReader
// interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store and store.MemberReader backed by a
// PostgreSQL database.
type PostgresStore struct {
	db     *sql.DB
	schema Schema
}

// Compile-time checks that PostgresStore implements both interfaces.
var (
	_ store.Store        = (*PostgresStore)(nil)
	_ store.MemberReader = (*PostgresStore)(nil)
)

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithSchema selects the member data schema used by MemberReader queries.
func WithSchema(s Schema) Option {
	return func(p *PostgresStore) { p.schema = s }
}

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string, opts ...Option) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db, opts...), nil
}

func newWithDB(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{db: db, schema: CanonicalSchema}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListConfigEntries(ctx context.Context) ([]*model.ConfigEntry, error) {
	return queryListConfigEntries(ctx, s.db)
}

func (s *PostgresStore) GetConfigEntry(ctx context.Context, key string) (*model.ConfigEntry, error) {
	return queryGetConfigEntry(ctx, s.db, key)
}

func (s *PostgresStore) UpdateConfigValue(ctx context.Context, key, value, actor string, at time.Time) error {
	return queryUpdateConfigValue(ctx, s.db, key, value, actor, at)
}

func (s *PostgresStore) InsertConfigEntry(ctx context.Context, entry *model.ConfigEntry) (bool, error) {
	return queryInsertConfigEntry(ctx, s.db, entry)
}

func (s *PostgresStore) RecordConfigChange(ctx context.Context, change *model.ConfigChange) error {
	return queryRecordConfigChange(ctx, s.db, change)
}

func (s *PostgresStore) ListConfigChanges(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error) {
	return queryListConfigChanges(ctx, s.db, key, limit)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, memberID int64) (*model.Member, error) {
	return queryGetMember(ctx, s.db, s.schema, memberID)
}

func (s *PostgresStore) GetLoanSummary(ctx context.Context, memberID int64) (*model.LoanSummary, error) {
	return queryGetLoanSummary(ctx, s.db, memberID)
}

func (s *PostgresStore) CountActiveGuarantors(ctx context.Context, memberID int64) (int, error) {
	return queryCountActiveGuarantors(ctx, s.db, memberID)
}

func (s *PostgresStore) GetLoan(ctx context.Context, loanID int64) (*model.Loan, error) {
	return queryGetLoan(ctx, s.db, loanID)
}

func (s *PostgresStore) ListMandatoryDeposits(ctx context.Context, memberID int64, since time.Time) ([]model.Deposit, error) {
	return queryListMandatoryDeposits(ctx, s.db, s.schema, memberID, since)
}

func (s *PostgresStore) ListPaymentHistory(ctx context.Context, memberID int64) ([]model.PaymentRecord, error) {
	return queryListPaymentHistory(ctx, s.db, memberID)
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) ListConfigEntries(ctx context.Context) ([]*model.ConfigEntry, error) {
	return queryListConfigEntries(ctx, s.tx)
}

func (s *txStore) GetConfigEntry(ctx context.Context, key string) (*model.ConfigEntry, error) {
	return queryGetConfigEntry(ctx, s.tx, key)
}

func (s *txStore) UpdateConfigValue(ctx context.Context, key, value, actor string, at time.Time) error {
	return queryUpdateConfigValue(ctx, s.tx, key, value, actor, at)
}

func (s *txStore) InsertConfigEntry(ctx context.Context, entry *model.ConfigEntry) (bool, error) {
	return queryInsertConfigEntry(ctx, s.tx, entry)
}

func (s *txStore) RecordConfigChange(ctx context.Context, change *model.ConfigChange) error {
	return queryRecordConfigChange(ctx, s.tx, change)
}

func (s *txStore) ListConfigChanges(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error) {
	return queryListConfigChanges(ctx, s.tx, key, limit)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
