package notifications

import (
	"log/slog"
	"time"

	"minifeed/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a protocol abuse.
	maxMessageSize = 1024

	sendBuffer = 64
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub *Hub

	// Conn is nil for clients registered without a socket (tests).
	Conn *websocket.Conn

	// Buffered channel of outbound messages. Closed by the hub on unregister.
	Send chan []byte

	UserID uint
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// ReadPump drains inbound frames so pongs and close frames are processed. It returns
// when the peer goes away and unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. Messages for a slow client are dropped.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		// Send was closed by a concurrent unregister.
		_ = recover()
	}()

	select {
	case c.Send <- message:
		return true
	default:
		middleware.Logger.Warn("websocket buffer full, dropped message", slog.Uint64("user_id", uint64(c.UserID)))
		return false
	}
}
