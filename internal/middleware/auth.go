package middleware

import (
	"errors"
	"strings"

	"quickchat/internal/models"
	"quickchat/internal/store"
	"quickchat/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// TokenHeader is the request header the chat clients put the session token in
const TokenHeader = "token"

// Auth validates the session token and loads the caller into the context.
// The token is read from the "token" header, an Authorization bearer, the
// "token" cookie, or a "token" query parameter (browsers cannot set headers
// on a WebSocket handshake).
func Auth(tokens *utils.TokenManager, users store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized - No token provided",
			})
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized - Invalid token",
			})
		}

		user, err := users.UserByID(c.UserContext(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized - User not found",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Database error",
			})
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if t := c.Get(TokenHeader); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := c.Cookies("token"); t != "" {
		return t
	}
	return c.Query("token")
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUser gets the authenticated user from context
func GetUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil
	}
	return user
}
