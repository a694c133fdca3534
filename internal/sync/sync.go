// Package sync periodically exports a JSONL snapshot of the business-rule
// configuration to backup destinations.
package sync

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/cooprules/internal/metrics"
)

// Destination is the interface for a snapshot target.
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from src to the given
// destinations at the specified interval.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick, until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce exports one snapshot and writes it to every destination. It
// returns the number of destinations that accepted the snapshot.
func (s *Scheduler) SyncOnce(ctx context.Context) int {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.source, &buf); err != nil {
		s.logger.Error("snapshot export failed", "err", err)
		for _, dest := range s.destinations {
			metrics.RecordSnapshotExport(dest.Name(), 0, err)
		}
		return 0
	}
	data := buf.Bytes()

	written := 0
	for _, dest := range s.destinations {
		start := time.Now()
		err := dest.Write(ctx, data)
		metrics.RecordSnapshotExport(dest.Name(), time.Since(start), err)
		if err != nil {
			s.logger.Error("snapshot destination write failed", "destination", dest.Name(), "err", err)
			continue
		}
		written++
	}

	s.logger.Info("snapshot exported", "destinations", written, "bytes", len(data))
	return written
}
