package notifications

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), "u1", NewEvent(EventNotificationCreated, nil)))
	assert.NoError(t, n.PublishBroadcast(context.Background(), NewEvent(EventViewInvalidated, nil)))
	assert.NoError(t, n.SubscribeUser(context.Background(), "u1", func(string) {}))
}

func TestChannelNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:abc", UserChannel("abc"))
	assert.Equal(t, "user.abc", UserRoutingKey("abc"))
}

func TestNotifier_SubscribeUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.SubscribeUser(ctx, "alice", func(payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), "bob", NewEvent(EventNotificationCreated, "for bob")))
	require.NoError(t, n.PublishUser(context.Background(), "alice", NewEvent(EventNotificationCreated, map[string]string{"id": "n1"})))
	require.NoError(t, n.PublishBroadcast(context.Background(), NewEvent(EventViewInvalidated, []string{"/"})))

	assert.Eventually(t, func() bool {
		return len(payloads) == 2
	}, time.Second, 10*time.Millisecond)

	var got []Event
	for i := 0; i < 2; i++ {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(<-payloads), &ev))
		got = append(got, ev)
	}

	require.Len(t, got, 2)
	assert.Equal(t, EventNotificationCreated, got[0].Type)
	assert.Equal(t, EventViewInvalidated, got[1].Type)
}

func TestNotifier_SubscriberRecoversFromPanic(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	require.NoError(t, n.SubscribeUser(ctx, "alice", func(string) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("first message explodes")
		}
	}))

	require.NoError(t, n.PublishUser(context.Background(), "alice", NewEvent(EventNotificationCreated, 1)))
	require.NoError(t, n.PublishUser(context.Background(), "alice", NewEvent(EventNotificationCreated, 2)))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, time.Second, 10*time.Millisecond)
}
