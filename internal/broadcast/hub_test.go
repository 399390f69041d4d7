package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if hub.SubscriberCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("subscriber count never reached %d, got %d", want, hub.SubscriberCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-client.Send():
		require.True(t, ok, "send channel closed unexpectedly")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast message")
		return nil
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := hub.Register(8)
	second := hub.Register(8)
	waitForSubscribers(t, hub, 2)

	hub.Broadcast([]byte("water rising"))

	assert.Equal(t, "water rising", string(receive(t, first)))
	assert.Equal(t, "water rising", string(receive(t, second)))
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := hub.Register(8)
	waitForSubscribers(t, hub, 1)

	hub.Unregister(client)
	waitForSubscribers(t, hub, 0)

	_, ok := <-client.Send()
	assert.False(t, ok, "send channel should be closed after unregister")
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := hub.Register(1)
	fast := hub.Register(8)
	waitForSubscribers(t, hub, 2)

	// 第一条填满 slow 的缓冲，第二条触发剔除
	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	assert.Equal(t, "one", string(receive(t, fast)))
	assert.Equal(t, "two", string(receive(t, fast)))
	waitForSubscribers(t, hub, 1)
}

func TestHub_ShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := hub.Register(8)
	waitForSubscribers(t, hub, 1)

	cancel()

	select {
	case _, ok := <-client.Send():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed on shutdown")
	}
}
