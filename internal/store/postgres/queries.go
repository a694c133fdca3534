package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// configColumns is the column list used for SELECT statements on the config_entries table.
const configColumns = `key, value, type, description, category, editable, requires_restart,
	validation_pattern, min_value, max_value, updated_by, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListConfigEntries(ctx context.Context, db executor) ([]*model.ConfigEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+configColumns+` FROM config_entries ORDER BY category, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigEntries(rows)
}

func queryGetConfigEntry(ctx context.Context, db executor, key string) (*model.ConfigEntry, error) {
	row := db.QueryRowContext(ctx, `SELECT `+configColumns+` FROM config_entries WHERE key = $1`, key)
	e, err := scanConfigEntry(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrUnknownKey
	}
	return e, err
}

func queryUpdateConfigValue(ctx context.Context, db executor, key, value, actor string, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE config_entries SET value = $2, updated_by = $3, updated_at = $4
		WHERE key = $1`,
		key, value, actor, at,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrUnknownKey
	}
	return nil
}

func queryInsertConfigEntry(ctx context.Context, db executor, e *model.ConfigEntry) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO config_entries (
			key, value, type, description, category, editable, requires_restart,
			validation_pattern, min_value, max_value, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (key) DO NOTHING`,
		e.Key,
		e.Value,
		string(e.Type),
		e.Description,
		e.Category,
		e.Editable,
		e.RequiresRestart,
		nullString(e.Pattern),
		nullFloatPtr(e.Min),
		nullFloatPtr(e.Max),
		e.UpdatedBy,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func queryRecordConfigChange(ctx context.Context, db executor, c *model.ConfigChange) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO config_changes (id, key, old_value, new_value, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Key, c.OldValue, c.NewValue, c.Actor, c.ChangedAt,
	)
	return err
}

func queryListConfigChanges(ctx context.Context, db executor, key string, limit int) ([]*model.ConfigChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, key, old_value, new_value, actor, changed_at
		FROM config_changes WHERE key = $1
		ORDER BY changed_at DESC
		LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConfigChanges(rows)
}
