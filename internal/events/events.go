package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicConfigUpdated = "coop.config.updated"
	TopicConfigSeeded  = "coop.config.seeded"

	// TopicConfigAll matches every config topic.
	TopicConfigAll = "coop.config.>"
)

// ConfigUpdated is published after a config value is written. Origin
// identifies the publishing process so it can skip its own messages.
type ConfigUpdated struct {
	Key       string    `json:"key"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Actor     string    `json:"actor"`
	ChangedAt time.Time `json:"changed_at"`
	Origin    string    `json:"origin,omitempty"`
}

// ConfigSeeded is published after missing default entries are inserted.
type ConfigSeeded struct {
	Keys   []string `json:"keys"`
	Origin string   `json:"origin,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives config events published by other processes.
type Subscriber interface {
	// Subscribe delivers raw payloads for topic, which may be a wildcard
	// such as TopicConfigAll. The returned func unsubscribes and closes
	// the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
