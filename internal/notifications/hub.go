package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"minifeed/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

var (
	ErrHubClosed       = errors.New("notification hub is shut down")
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
)

// Hub maps user ids to their open websocket clients.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*Client]struct{})}
}

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.totalConns--
	middleware.ActiveWebSockets.Dec()
	close(client.Send)
}

// Broadcast sends message to all connections for userID and returns how many accepted it.
func (h *Hub) Broadcast(userID uint, message string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	data := []byte(message)
	for c := range h.conns[userID] {
		if c.TrySend(data) {
			delivered++
		}
	}
	return delivered
}

// Connections returns the number of open clients for userID.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// StartWiring subscribes the hub to the notifier so events published for a user reach
// that user's open connections on this instance.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, err := parseUserChannel(channel)
		if err != nil {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	})
}

func parseUserChannel(channel string) (uint, error) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, errors.New("not a user channel")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user id")
	}
	return uint(id), nil
}

// Shutdown refuses new registrations and closes every client's send channel; each write
// pump then sends a close frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for _, clients := range h.conns {
		for c := range clients {
			close(c.Send)
			middleware.ActiveWebSockets.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
