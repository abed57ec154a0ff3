package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestPendingStore_SaveConsume(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	store := NewPendingStore(rdb)
	ctx := context.Background()

	want := Pending{UID: "u1", Target: Target{Email: "a@example.com"}}
	require.NoError(t, store.Save(ctx, "vid", want))

	got, err := store.Consume(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	// 只能使用一次
	_, err = store.Consume(ctx, "vid")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingStore_Expired(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	store := NewPendingStore(rdb)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "vid", Pending{UID: "u1", Target: Target{Phone: "+86 13800000000"}}))
	assert.Equal(t, pendingTTL, mr.TTL(pendingKeyPrefix+"vid"))

	mr.FastForward(pendingTTL + time.Second)

	_, err := store.Consume(ctx, "vid")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingStore_EmptyID(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	_, err := NewPendingStore(rdb).Consume(context.Background(), "")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestTarget(t *testing.T) {
	assert.True(t, Target{}.Empty())
	assert.Equal(t, "a@example.com", Target{Email: "a@example.com"}.Value())
	assert.Equal(t, "+86 1", Target{Phone: "+86 1"}.Value())
}
