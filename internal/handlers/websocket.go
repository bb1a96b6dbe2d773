package handlers

import (
	"quickchat/internal/middleware"
	ws "quickchat/internal/websocket"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WebSocketUpgrade checks if the request should be upgraded to WebSocket
func (h *Handler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return fail(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
}

// WebSocketHandler binds an authenticated connection to the hub
func (h *Handler) WebSocketHandler(c *websocket.Conn) {
	userID, _ := c.Locals("userID").(string)
	if userID == "" {
		c.Close()
		return
	}

	client := ws.NewClient(userID, c, h.Hub)
	h.Hub.Register <- client

	go client.WritePump()
	client.ReadPump() // blocks until the connection closes
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(c *fiber.Ctx) error {
	online, err := h.Hub.GetOnlineUsers(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Presence unavailable")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"connectedHere": h.Hub.GetOnlineCount(),
			"userIds":       online,
			"caller":        middleware.GetUserID(c),
		},
	})
}
