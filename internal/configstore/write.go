package configstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/idgen"
	"github.com/alfredjeanlab/cooprules/internal/metrics"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store"
)

// DefaultHistoryLimit is used by History when limit is not positive.
const DefaultHistoryLimit = 50

// Set validates raw against key's type and constraints, stores its canonical
// form together with an audit record, and invalidates the cache.
//
// Unknown keys, non-editable keys and invalid values return *model.ConfigError
// wrapping model.ErrUnknownKey, model.ErrNotEditable or model.ErrInvalidValue.
// Storage failures return *model.DataAccessError.
func (s *Store) Set(ctx context.Context, key string, raw any, actor string) error {
	err := s.set(ctx, key, raw, actor)
	metrics.RecordConfigWrite(err)
	return err
}

func (s *Store) set(ctx context.Context, key string, raw any, actor string) error {
	entry, err := s.backend.GetConfigEntry(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrUnknownKey) {
			return &model.ConfigError{Key: key, Err: model.ErrUnknownKey}
		}
		return &model.DataAccessError{Op: "get config entry", Err: err}
	}
	if !entry.Editable {
		return &model.ConfigError{Key: key, Err: model.ErrNotEditable}
	}

	canonical, err := model.Canonicalize(entry, raw)
	if err != nil {
		var ce *model.ConfigError
		if errors.As(err, &ce) {
			ce.Key = key
			return ce
		}
		return &model.ConfigError{Key: key, Err: model.ErrInvalidValue, Reason: err.Error()}
	}

	changeID, err := idgen.ChangeID()
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	change := &model.ConfigChange{
		ID:        changeID,
		Key:       key,
		OldValue:  entry.Value,
		NewValue:  canonical,
		Actor:     actor,
		ChangedAt: now,
	}

	err = s.backend.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.UpdateConfigValue(ctx, key, canonical, actor, now); err != nil {
			return err
		}
		return tx.RecordConfigChange(ctx, change)
	})
	if err != nil {
		if errors.Is(err, model.ErrUnknownKey) {
			return &model.ConfigError{Key: key, Err: model.ErrUnknownKey}
		}
		return &model.DataAccessError{Op: "update config entry", Err: err}
	}

	s.Invalidate()
	metrics.RecordConfigInvalidation("local")
	s.logger.Info("config updated", "key", key, "actor", actor, "old", entry.Value, "new", canonical)

	event := events.ConfigUpdated{
		Key:       key,
		OldValue:  entry.Value,
		NewValue:  canonical,
		Actor:     actor,
		ChangedAt: now,
		Origin:    s.origin,
	}
	if err := s.publisher.Publish(ctx, events.TopicConfigUpdated, event); err != nil {
		// Other processes still converge within one TTL.
		s.logger.Warn("publishing config update failed", "key", key, "err", err)
	}
	return nil
}

// History returns the audit records for key, newest first.
func (s *Store) History(ctx context.Context, key string, limit int) ([]*model.ConfigChange, error) {
	if _, err := s.backend.GetConfigEntry(ctx, key); err != nil {
		if errors.Is(err, model.ErrUnknownKey) {
			return nil, &model.ConfigError{Key: key, Err: model.ErrUnknownKey}
		}
		return nil, &model.DataAccessError{Op: "get config entry", Err: err}
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	changes, err := s.backend.ListConfigChanges(ctx, key, limit)
	if err != nil {
		return nil, &model.DataAccessError{Op: "list config changes", Err: err}
	}
	return changes, nil
}

// Seed inserts every entry whose key does not exist yet and returns the keys
// it inserted. Existing entries are never overwritten. All definitions are
// validated before anything is written.
func (s *Store) Seed(ctx context.Context, entries []*model.ConfigEntry, actor string) ([]string, error) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if err := model.ValidateConfigEntry(e); err != nil {
			return nil, fmt.Errorf("seed entry %q: %w", e.Key, err)
		}
		if seen[e.Key] {
			return nil, fmt.Errorf("seed entry %q: duplicate key", e.Key)
		}
		seen[e.Key] = true
	}

	now := s.clock.Now().UTC()
	var inserted []string
	err := s.backend.RunInTransaction(ctx, func(tx store.Store) error {
		inserted = inserted[:0]
		for _, e := range entries {
			cp := *e
			cp.UpdatedBy, cp.CreatedAt, cp.UpdatedAt = actor, now, now
			ok, err := tx.InsertConfigEntry(ctx, &cp)
			if err != nil {
				return fmt.Errorf("insert %s: %w", e.Key, err)
			}
			if ok {
				inserted = append(inserted, e.Key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &model.DataAccessError{Op: "seed config entries", Err: err}
	}
	if len(inserted) == 0 {
		return nil, nil
	}

	s.Invalidate()
	metrics.RecordConfigInvalidation("local")
	s.logger.Info("config seeded", "inserted", len(inserted), "actor", actor)
	if err := s.publisher.Publish(ctx, events.TopicConfigSeeded, events.ConfigSeeded{Keys: inserted, Origin: s.origin}); err != nil {
		s.logger.Warn("publishing config seed failed", "err", err)
	}
	return inserted, nil
}
