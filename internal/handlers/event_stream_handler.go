package handlers

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	sessionws "github.com/saeid-a/GymSessionsBack/internal/websocket"
)

// EventStreamHandler upgrades authenticated requests to a websocket that
// receives the caller's session events.
type EventStreamHandler struct {
	hub *sessionws.Hub
}

func NewEventStreamHandler(hub *sessionws.Hub) *EventStreamHandler {
	return &EventStreamHandler{hub: hub}
}

// Upgrade must run after QueryTokenAuth.
func (h *EventStreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	actor, ok := actorFromCtx(c)
	if !ok {
		return unauthorized(c)
	}
	c.Locals("actor_id", actor.ID)
	return c.Next()
}

func (h *EventStreamHandler) Stream(conn *websocket.Conn) {
	userID, _ := conn.Locals("actor_id").(int64)
	client := sessionws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	log.Debug().Int64("user_id", userID).Msg("event stream connected")
	go client.WritePump()
	client.ReadPump()
}
