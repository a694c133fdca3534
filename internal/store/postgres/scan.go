package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanConfigEntry scans a single row into a model.ConfigEntry.
// The row must contain columns in the order defined by configColumns.
func scanConfigEntry(row scannable) (*model.ConfigEntry, error) {
	var e model.ConfigEntry
	var (
		typ      string
		pattern  sql.NullString
		minValue sql.NullFloat64
		maxValue sql.NullFloat64
	)

	err := row.Scan(
		&e.Key,
		&e.Value,
		&typ,
		&e.Description,
		&e.Category,
		&e.Editable,
		&e.RequiresRestart,
		&pattern,
		&minValue,
		&maxValue,
		&e.UpdatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = model.ConfigType(typ)
	e.Pattern = pattern.String
	if minValue.Valid {
		v := minValue.Float64
		e.Min = &v
	}
	if maxValue.Valid {
		v := maxValue.Float64
		e.Max = &v
	}
	return &e, nil
}

func scanConfigEntries(rows *sql.Rows) ([]*model.ConfigEntry, error) {
	var entries []*model.ConfigEntry
	for rows.Next() {
		e, err := scanConfigEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanConfigChange(row scannable) (*model.ConfigChange, error) {
	var c model.ConfigChange
	if err := row.Scan(&c.ID, &c.Key, &c.OldValue, &c.NewValue, &c.Actor, &c.ChangedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanConfigChanges(rows *sql.Rows) ([]*model.ConfigChange, error) {
	var changes []*model.ConfigChange
	for rows.Next() {
		c, err := scanConfigChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func scanPaymentRecord(row scannable) (*model.PaymentRecord, error) {
	var p model.PaymentRecord
	var paidAt sql.NullTime
	if err := row.Scan(&p.DueDate, &paidAt, &p.Amount, &p.Status); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloatPtr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
