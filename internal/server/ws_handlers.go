package server

import (
	"log/slog"

	"minifeed/internal/middleware"
	"minifeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade rejects plain HTTP requests and refuses upgrades when realtime delivery
// is not configured.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	if s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime notifications are unavailable",
			Code:  models.CodeInternal,
		})
	}
	return c.Next()
}

// WebsocketHandler streams like events addressed to the authenticated user.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(uid)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
