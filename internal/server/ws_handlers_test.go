package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"minifeed/internal/cache"
	"minifeed/internal/notifications"
	"minifeed/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocket_ReceivesLikeEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	store := repository.NewMemoryStore()
	s := NewServerWithRepos(testConfig(), Repositories{
		Users: store.Users(),
		Posts: store.Posts(),
		Likes: store.Likes(),
	}, rdb)
	a := newAPI(t, s)

	aliceID := a.register("alice")
	bobID := a.register("bob")
	alice := a.login("alice")
	bob := a.login("bob")
	postID := a.createPost(alice, "watched")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.hub.StartWiring(ctx, s.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.Shutdown() })

	conn, resp, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?token="+alice, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return s.hub.Connections(aliceID) == 1 },
		2*time.Second, 10*time.Millisecond)

	status, body := a.do(http.MethodPost, "/likes/", bob, fiber.Map{"post_id": postID})
	require.Equal(t, http.StatusCreated, status, string(body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string                  `json:"type"`
		Payload notifications.LikeEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &ev), string(msg))
	assert.Equal(t, notifications.EventPostLiked, ev.Type)
	assert.Equal(t, postID, ev.Payload.PostID)
	assert.Equal(t, bobID, ev.Payload.LikerID)
	assert.Equal(t, "bob", ev.Payload.LikerName)
	assert.Equal(t, int64(1), ev.Payload.LikesCount)
}

func TestWebsocket_RejectsBadToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	store := repository.NewMemoryStore()
	s := NewServerWithRepos(testConfig(), Repositories{
		Users: store.Users(),
		Posts: store.Posts(),
		Likes: store.Likes(),
	}, rdb)
	app := s.App()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	_, resp, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
