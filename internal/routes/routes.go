package routes

import (
	"quickchat/internal/handlers"
	"quickchat/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api")
	protected := middleware.Auth(h.Tokens, h.Store)

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Server is live",
		})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.Limit(middleware.AuthTier), h.Signup)
	auth.Post("/login", middleware.Limit(middleware.AuthTier), h.Login)
	auth.Put("/update-profile", protected, middleware.Limit(middleware.WriteTier), h.UpdateProfile)
	auth.Get("/check", protected, h.CheckAuth)

	// Message routes (protected). Static paths go before /:userId.
	messages := api.Group("/messages", protected)
	messages.Get("/users", middleware.Limit(middleware.ReadTier), h.GetUsersForSidebar)
	messages.Post("/send/:userId", middleware.Limit(middleware.WriteTier), h.SendMessage)
	messages.Put("/mark/:messageId", middleware.Limit(middleware.ReadTier), h.MarkMessageAsSeen)
	messages.Get("/:userId", middleware.Limit(middleware.ReadTier), h.GetMessages)

	// Serve stored images (public)
	app.Get("/uploads/:kind/:filename", h.GetFile)

	// WebSocket route (protected)
	api.Get("/ws", protected, h.WebSocketUpgrade, websocket.New(h.WebSocketHandler))
	api.Get("/ws/stats", protected, h.GetWebSocketStats)
}
