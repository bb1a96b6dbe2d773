package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Tier is a request budget: Max requests per Window
type Tier struct {
	Max    int
	Window time.Duration
}

var (
	AuthTier  = Tier{Max: 10, Window: 15 * time.Minute} // signup, login
	WriteTier = Tier{Max: 60, Window: time.Minute}       // send, profile updates
	ReadTier  = Tier{Max: 300, Window: time.Minute}      // history, sidebar, mark seen
)

// Limit enforces t per user once authenticated, per client IP before that.
// Each call gets its own counter store.
func Limit(t Tier) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        t.Max,
		Expiration: t.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID := GetUserID(c); userID != "" {
				return "user:" + userID
			}
			return "ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, retryAfter(t.Window))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later",
			})
		},
	})
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(int(window / time.Second))
}
