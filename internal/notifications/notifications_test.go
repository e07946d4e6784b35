package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "payload"))
	assert.NoError(t, n.PublishLikeEvent(context.Background(), 1, LikeEvent{PostID: 2, LikerID: 3}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{42, "notifications:user:42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, err := parseUserChannel(tt.expected)
		require.NoError(t, err)
		assert.Equal(t, tt.userID, id)
	}

	for _, bad := range []string{"chat:conv:1", "notifications:user:", "notifications:user:abc", "notifications:user:0"} {
		_, err := parseUserChannel(bad)
		assert.Error(t, err, bad)
	}
}

func TestHub_RegisterLimitsAndUnregister(t *testing.T) {
	hub := NewHub()

	clients := make([]*Client, 0, maxConnsPerUser)
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register(5, nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)
	assert.Equal(t, maxConnsPerUser, hub.Connections(5))

	hub.UnregisterClient(clients[0])
	hub.UnregisterClient(clients[0])
	assert.Equal(t, maxConnsPerUser-1, hub.Connections(5))
	assert.False(t, clients[0].TrySend([]byte("late")), "closed client must not accept messages")

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	_, err = hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_BroadcastTargetsOneUser(t *testing.T) {
	hub := NewHub()
	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, hub.Broadcast(1, "hi"))
	assert.Equal(t, 0, hub.Broadcast(3, "nobody"))

	assert.Equal(t, "hi", string(<-alice.Send))
	assert.Empty(t, bob.Send)
	_ = hub.Shutdown(context.Background())
}

func TestHub_SlowClientDropsMessages(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
	_ = hub.Shutdown(context.Background())
}

func TestHub_StartWiringDeliversLikeEvents(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))

	author, err := hub.Register(7, nil)
	require.NoError(t, err)

	require.NoError(t, n.PublishLikeEvent(ctx, 7, LikeEvent{PostID: 3, LikerID: 9, LikesCount: 1}))

	var raw []byte
	require.Eventually(t, func() bool {
		select {
		case raw = <-author.Send:
			return true
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	var ev struct {
		Type    string    `json:"type"`
		Payload LikeEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, EventPostLiked, ev.Type)
	assert.Equal(t, LikeEvent{PostID: 3, LikerID: 9, LikesCount: 1}, ev.Payload)

	_ = hub.Shutdown(context.Background())
}
