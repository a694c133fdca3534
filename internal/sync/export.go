package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// Source lists the config entries to snapshot. *configstore.Store satisfies it.
type Source interface {
	Entries(ctx context.Context) ([]*model.ConfigEntry, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]*model.ConfigEntry, error)

func (f SourceFunc) Entries(ctx context.Context) ([]*model.ConfigEntry, error) { return f(ctx) }

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version     string    `json:"version"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	ConfigCount int       `json:"config_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string             `json:"type"`
	Data *model.ConfigEntry `json:"data"`
}

// ExportJSONL writes every config entry from src as JSONL to w: a header line
// followed by one line per entry, sorted by key.
func ExportJSONL(ctx context.Context, src Source, w io.Writer) error {
	entries, err := src.Entries(ctx)
	if err != nil {
		return fmt.Errorf("list config entries: %w", err)
	}

	sorted := append([]*model.ConfigEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:     "1",
		Type:        "header",
		Timestamp:   time.Now().UTC(),
		ConfigCount: len(sorted),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range sorted {
		if err := enc.Encode(record{Type: "config", Data: e}); err != nil {
			return fmt.Errorf("encode config %s: %w", e.Key, err)
		}
	}

	return nil
}
