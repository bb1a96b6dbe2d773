package handlers

import (
	"quickchat/internal/media"
	"quickchat/internal/store"
	"quickchat/internal/utils"
	ws "quickchat/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Handler holds the dependencies shared by every HTTP handler
type Handler struct {
	Store  store.Store
	Hub    *ws.Hub
	Tokens *utils.TokenManager
	Media  *media.Storage
	Log    zerolog.Logger
}

// New creates the HTTP handler set
func New(st store.Store, hub *ws.Hub, tokens *utils.TokenManager, files *media.Storage, log zerolog.Logger) *Handler {
	return &Handler{
		Store:  st,
		Hub:    hub,
		Tokens: tokens,
		Media:  files,
		Log:    log.With().Str("component", "http").Logger(),
	}
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
