package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{"subscription.upgrade", EventSubscriptionChanged},
		{"subscription.cancel", EventSubscriptionChanged},
		{"wallet.recharge", EventWalletChanged},
		{"profile.sync", EventProfileUpdated},
		{"profile.updateMeta", EventProfileUpdated},
		{"", EventProfileUpdated},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, EventTypeFor(tt.action))
		})
	}
}

func TestAccountEvent_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(&AccountEvent{UID: "u1", Action: "profile.sync"})
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	_, hasOrder := raw["order_id"]
	assert.False(t, hasOrder, "empty order id should be omitted")
	assert.Equal(t, "u1", raw["uid"])
}

func TestPublisherSubscriber(t *testing.T) {
	client := setupTestRedis(t)

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *AccountEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(event *AccountEvent) {
			received <- event
		})
	}()

	// 等待订阅建立
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, ChannelAccountEvents).Result()
		return err == nil && n[ChannelAccountEvents] > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.PublishAccountEvent(ctx, &AccountEvent{
		UID:     "u1",
		Action:  "wallet.recharge",
		OrderID: "RC-1",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "u1", event.UID)
		assert.Equal(t, EventWalletChanged, event.Type)
		assert.Equal(t, "RC-1", event.OrderID)
		assert.NotZero(t, event.EmitTime)
	case <-ctx.Done():
		t.Fatal("Timeout waiting for event")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
