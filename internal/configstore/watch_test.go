package configstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/cooprules/internal/events"
)

type chanSubscriber struct {
	ch       chan []byte
	canceled chan struct{}
}

func newChanSubscriber() *chanSubscriber {
	return &chanSubscriber{ch: make(chan []byte, 8), canceled: make(chan struct{})}
}

func (c *chanSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	return c.ch, func() { close(c.canceled) }, nil
}

func (c *chanSubscriber) Close() error { return nil }

func TestWatchInvalidations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ms := seededBackend(t)
	s, _ := newTestStore(t, ms)
	sub := newChanSubscriber()

	done := make(chan error, 1)
	go func() { done <- s.WatchInvalidations(ctx, sub) }()

	assert.Equal(t, 2.0, s.Decimal(ctx, "LOAN_PENALTY_RATE", 0))
	require.NoError(t, ms.UpdateConfigValue(ctx, "LOAN_PENALTY_RATE", "6.00", "peer", time.Now()))

	// Our own events are ignored.
	own, _ := json.Marshal(events.ConfigUpdated{Key: "LOAN_PENALTY_RATE", Origin: s.Origin()})
	sub.ch <- own
	sub.ch <- []byte("not json")

	peer, _ := json.Marshal(events.ConfigUpdated{Key: "LOAN_PENALTY_RATE", Origin: "inst-peer"})
	sub.ch <- peer

	assert.Eventually(t, func() bool {
		return s.Decimal(ctx, "LOAN_PENALTY_RATE", 0) == 6.0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchInvalidations did not return after cancel")
	}
	<-sub.canceled
}
