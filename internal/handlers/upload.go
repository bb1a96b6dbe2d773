package handlers

import (
	"os"

	"quickchat/internal/media"

	"github.com/gofiber/fiber/v2"
)

// GetFile serves stored message images and avatars
func (h *Handler) GetFile(c *fiber.Ctx) error {
	path, err := h.Media.Path(c.Params("kind"), c.Params("filename"))
	if err != nil {
		return fail(c, fiber.StatusNotFound, "File not found")
	}

	if _, err := os.Stat(path); err != nil {
		return fail(c, fiber.StatusNotFound, "File not found")
	}

	c.Set(fiber.HeaderContentType, media.ContentType(path))
	return c.SendFile(path)
}
