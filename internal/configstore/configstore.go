// Package configstore serves typed business-rule configuration from a
// TTL-bounded in-process cache over store.Store.
//
// Reads never fail: a missing key, an unreachable backend or a type mismatch
// returns the caller's default and is logged. Writes are validated, audited
// and surfaced to the caller as *model.ConfigError.
package configstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/clock"
	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/idgen"
	"github.com/alfredjeanlab/cooprules/internal/metrics"
	"github.com/alfredjeanlab/cooprules/internal/model"
	"github.com/alfredjeanlab/cooprules/internal/store"
)

// DefaultTTL is how long a loaded snapshot is served before a full reload.
const DefaultTTL = 5 * time.Minute

// maxRetryInterval caps how often a failing reload is retried while stale
// values are being served.
const maxRetryInterval = 5 * time.Second

// Store is the typed configuration cache. Construct one per process and pass
// it to every consumer.
type Store struct {
	backend   store.Store
	clock     clock.Clock
	logger    *slog.Logger
	ttl       time.Duration
	publisher events.Publisher
	origin    string

	mu         sync.RWMutex
	entries    map[string]cachedEntry // nil means empty; never mutated once built
	nextReload time.Time
}

type cachedEntry struct {
	entry *model.ConfigEntry
	value model.Value
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for TTL and audit timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger for read fallbacks and writes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithTTL sets the cache lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPublisher sets where config-change events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithOrigin sets the identifier stamped on published events. Messages
// carrying this origin are ignored by WatchInvalidations.
func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// New returns a Store reading from backend. Nothing is loaded until the
// first read.
func New(backend store.Store, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		clock:     clock.Real{},
		logger:    slog.Default(),
		ttl:       DefaultTTL,
		publisher: &events.NoopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.origin == "" {
		s.origin = idgen.MustInstanceID()
	}
	return s
}

// Origin returns the identifier stamped on events this Store publishes.
func (s *Store) Origin() string { return s.origin }

// Invalidate drops the cached snapshot; the next read reloads every entry.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.entries = nil
	s.nextReload = time.Time{}
	s.mu.Unlock()
}

// snapshot returns the current entries, reloading them when the cache is
// empty or expired. On reload failure the previous snapshot is kept; the
// error is returned only when there is nothing to serve.
func (s *Store) snapshot(ctx context.Context) (map[string]cachedEntry, error) {
	now := s.clock.Now()

	s.mu.RLock()
	entries, fresh := s.entries, s.entries != nil && now.Before(s.nextReload)
	s.mu.RUnlock()
	if fresh {
		return entries, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries != nil && now.Before(s.nextReload) {
		return s.entries, nil
	}

	loaded, err := s.load(ctx)
	metrics.RecordConfigReload(err)
	if err != nil {
		s.logger.Warn("config reload failed", "err", err, "stale_entries", len(s.entries))
		if s.entries == nil {
			return nil, err
		}
		s.nextReload = now.Add(min(s.ttl, maxRetryInterval))
		return s.entries, nil
	}
	s.entries, s.nextReload = loaded, now.Add(s.ttl)
	return loaded, nil
}

// cached is snapshot for the never-failing read paths.
func (s *Store) cached(ctx context.Context) map[string]cachedEntry {
	entries, _ := s.snapshot(ctx)
	return entries
}

func (s *Store) load(ctx context.Context) (map[string]cachedEntry, error) {
	rows, err := s.backend.ListConfigEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]cachedEntry, len(rows))
	for _, e := range rows {
		v, err := model.ParseValue(e.Type, e.Value)
		if err != nil {
			s.logger.Warn("skipping unreadable config entry", "key", e.Key, "type", e.Type, "err", err)
			continue
		}
		out[e.Key] = cachedEntry{entry: e, value: v}
	}
	return out, nil
}

// Lookup returns the typed value for key and whether it was found.
func (s *Store) Lookup(ctx context.Context, key string) (model.Value, bool) {
	entries := s.cached(ctx)
	if entries == nil {
		s.fallback(key, "unavailable")
		return model.Value{}, false
	}
	c, ok := entries[key]
	if !ok {
		s.fallback(key, "unknown_key")
		return model.Value{}, false
	}
	return c.value, true
}

// Get returns the typed value for key, or def if it is unavailable.
func (s *Store) Get(ctx context.Context, key string, def model.Value) model.Value {
	if v, ok := s.Lookup(ctx, key); ok {
		return v
	}
	return def
}

// Int returns an integer entry, or def.
func (s *Store) Int(ctx context.Context, key string, def int64) int64 {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	n, ok := v.Int()
	if !ok {
		s.mismatch(key, v, model.ConfigTypeInteger)
		return def
	}
	return n
}

// Decimal returns a decimal or integer entry as a float, or def.
func (s *Store) Decimal(ctx context.Context, key string, def float64) float64 {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	f, ok := v.Decimal()
	if !ok {
		s.mismatch(key, v, model.ConfigTypeDecimal)
		return def
	}
	return f
}

// Bool returns a boolean entry, or def.
func (s *Store) Bool(ctx context.Context, key string, def bool) bool {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	b, ok := v.Bool()
	if !ok {
		s.mismatch(key, v, model.ConfigTypeBoolean)
		return def
	}
	return b
}

// String returns a string entry, or def.
func (s *Store) String(ctx context.Context, key string, def string) string {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	str, ok := v.Str()
	if !ok {
		s.mismatch(key, v, model.ConfigTypeString)
		return def
	}
	return str
}

// JSON returns the decoded structure of a json entry, or def.
func (s *Store) JSON(ctx context.Context, key string, def any) any {
	v, ok := s.Lookup(ctx, key)
	if !ok {
		return def
	}
	j, ok := v.JSON()
	if !ok {
		s.mismatch(key, v, model.ConfigTypeJSON)
		return def
	}
	return j
}

// Category returns every value in category keyed by config key. The map is
// empty when nothing matches or the backend is unavailable.
func (s *Store) Category(ctx context.Context, category string) map[string]model.Value {
	out := make(map[string]model.Value)
	for key, c := range s.cached(ctx) {
		if c.entry.Category == category {
			out[key] = c.value
		}
	}
	return out
}

// Exists reports whether key is a known config entry.
func (s *Store) Exists(ctx context.Context, key string) bool {
	_, ok := s.cached(ctx)[key]
	return ok
}

// Metadata returns the descriptive fields of key, or nil if it is unknown.
func (s *Store) Metadata(ctx context.Context, key string) *model.ConfigMetadata {
	c, ok := s.cached(ctx)[key]
	if !ok {
		return nil
	}
	return c.entry.Metadata()
}

// Entries returns copies of every cached entry ordered by category then key.
// Unlike the value reads it reports an unreachable backend as an error.
func (s *Store) Entries(ctx context.Context) ([]*model.ConfigEntry, error) {
	entries, err := s.snapshot(ctx)
	if err != nil {
		return nil, &model.DataAccessError{Op: "list config entries", Err: err}
	}
	out := make([]*model.ConfigEntry, 0, len(entries))
	for _, c := range entries {
		cp := *c.entry
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

func (s *Store) fallback(key, reason string) {
	metrics.RecordConfigFallback(reason)
	s.logger.Warn("config read fell back to default", "key", key, "reason", reason)
}

func (s *Store) mismatch(key string, v model.Value, want model.ConfigType) {
	metrics.RecordConfigFallback("type_mismatch")
	s.logger.Warn("config read fell back to default", "key", key, "reason", "type_mismatch",
		"stored_type", v.Type(), "requested_type", want)
}
