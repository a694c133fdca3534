package events

import "context"

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

// Publish discards event.
func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	Events []Recorded
}

// Recorded is one event captured by RecordingPublisher.
type Recorded struct {
	Topic string
	Event any
}

// Publish appends the event to Events.
func (r *RecordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	r.Events = append(r.Events, Recorded{Topic: topic, Event: event})
	return nil
}

func (r *RecordingPublisher) Close() error {
	return nil
}
