package configstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/cooprules/internal/events"
	"github.com/alfredjeanlab/cooprules/internal/metrics"
)

// WatchInvalidations drops the cache whenever another process publishes a
// config change. It blocks until ctx is done or the subscription closes.
func (s *Store) WatchInvalidations(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicConfigAll)
	if err != nil {
		return fmt.Errorf("watching config changes: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			var msg struct {
				Key    string `json:"key"`
				Origin string `json:"origin"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				s.logger.Warn("ignoring malformed config event", "err", err)
				continue
			}
			if msg.Origin == s.origin {
				continue
			}
			s.Invalidate()
			metrics.RecordConfigInvalidation("remote")
			s.logger.Debug("config cache invalidated by peer", "origin", msg.Origin, "key", msg.Key)
		}
	}
}
