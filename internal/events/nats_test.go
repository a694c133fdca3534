package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// newPair connects a publisher and a subscriber to the same embedded server.
func newPair(t *testing.T) (*NATSPublisher, *NATSSubscriber) {
	t.Helper()
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return pub, sub
}

func receive(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config event")
		return nil
	}
}

func TestNATS_ConfigUpdatedRoundTrip(t *testing.T) {
	pub, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicConfigAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	sent := ConfigUpdated{
		Key:       "GUARANTOR_REQUIREMENT_THRESHOLD",
		OldValue:  "500000.00",
		NewValue:  "400000.00",
		Actor:     "treasurer",
		ChangedAt: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
		Origin:    "node-a",
	}
	if err := pub.Publish(context.Background(), TopicConfigUpdated, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var got ConfigUpdated
	if err := json.Unmarshal(receive(t, ch), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Key != sent.Key || got.NewValue != sent.NewValue || got.Origin != "node-a" || !got.ChangedAt.Equal(sent.ChangedAt) {
		t.Fatalf("got %+v, want %+v", got, sent)
	}
}

func TestNATS_WildcardCarriesSeedEvents(t *testing.T) {
	pub, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicConfigAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	ctx := context.Background()
	if err := pub.Publish(ctx, TopicConfigSeeded, ConfigSeeded{Keys: []string{"MIN_DEPOSIT_AMOUNT", "CURRENCY_CODE"}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Publish(ctx, "other.topic", ConfigUpdated{Key: "IGNORED"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var seeded ConfigSeeded
	if err := json.Unmarshal(receive(t, ch), &seeded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(seeded.Keys) != 2 || seeded.Keys[1] != "CURRENCY_CODE" {
		t.Fatalf("unexpected seed event %+v", seeded)
	}

	select {
	case msg := <-ch:
		t.Fatalf("received event outside coop.config: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubscriber_Cancel(t *testing.T) {
	_, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicConfigAll)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}
}

func TestNATSSubscriber_BadTopic(t *testing.T) {
	_, sub := newPair(t)

	if _, _, err := sub.Subscribe(""); err == nil {
		t.Fatal("expected error for an empty topic")
	}
}

func TestNATS_ConnectionName(t *testing.T) {
	pub, sub := newPair(t)

	if pub.conn.Opts.Name != connectionName || sub.conn.Opts.Name != connectionName {
		t.Fatalf("connection names = %q, %q", pub.conn.Opts.Name, sub.conn.Opts.Name)
	}
	if !sub.conn.IsConnected() {
		t.Fatal("expected subscriber to be connected")
	}
}

func TestNATSSubscriber_ImplementsSubscriber(t *testing.T) {
	var _ Subscriber = (*NATSSubscriber)(nil)
}

func TestNATSPublisher_SetsContentTypeHeader(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer nc.Close()
	sub, err := nc.SubscribeSync(TopicConfigUpdated)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	nc.Flush()

	if err := pub.Publish(context.Background(), TopicConfigUpdated, ConfigUpdated{Key: "LATE_PAYMENT_PENALTY_RATE"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if ct := msg.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestNATSPublisher_CloseFlushesPendingEvents(t *testing.T) {
	pub, sub := newPair(t)

	ch, cancel, err := sub.Subscribe(TopicConfigUpdated)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	if err := pub.Publish(context.Background(), TopicConfigUpdated, ConfigUpdated{Key: "MIN_GUARANTORS"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	pub.Close()

	var got ConfigUpdated
	if err := json.Unmarshal(receive(t, ch), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Key != "MIN_GUARANTORS" {
		t.Fatalf("got %+v", got)
	}
}

func TestNATS_CallerOptionsOverrideDefaults(t *testing.T) {
	url := startTestNATS(t)
	sub, err := NewNATSSubscriber(url, nats.Name("cooprules-worker"))
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	if sub.conn.Opts.Name != "cooprules-worker" {
		t.Fatalf("connection name = %q", sub.conn.Opts.Name)
	}
	if sub.conn.Opts.MaxReconnect != -1 {
		t.Fatalf("MaxReconnect = %d, want -1", sub.conn.Opts.MaxReconnect)
	}
}
