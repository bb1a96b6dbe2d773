package handlers

import (
	"errors"
	"strings"

	"quickchat/internal/media"
	"quickchat/internal/middleware"
	"quickchat/internal/models"
	"quickchat/internal/store"
	ws "quickchat/internal/websocket"

	"github.com/gofiber/fiber/v2"
)

// GetUsersForSidebar returns every other user and the caller's unseen counts per sender
func (h *Handler) GetUsersForSidebar(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	ctx := c.UserContext()

	users, err := h.Store.ListUsersExcept(ctx, userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("list users")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	unseen, err := h.Store.UnseenCounts(ctx, userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("count unseen")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	resp := make([]models.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToResponse())
	}

	return c.JSON(models.UsersResponse{
		Success:        true,
		Users:          resp,
		UnseenMessages: unseen,
	})
}

// GetMessages returns the full history with another user and marks their messages as seen
func (h *Handler) GetMessages(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	otherID := c.Params("userId")
	ctx := c.UserContext()

	if _, err := h.Store.UserByID(ctx, otherID); errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "User not found")
	} else if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	messages, err := h.Store.Conversation(ctx, userID, otherID)
	if err != nil {
		h.Log.Error().Err(err).Msg("load conversation")
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	if err := h.Store.MarkConversationSeen(ctx, otherID, userID); err != nil {
		h.Log.Warn().Err(err).Str("user", userID).Str("peer", otherID).Msg("mark conversation seen")
	}

	return c.JSON(models.MessagesResponse{
		Success:  true,
		Messages: messages,
	})
}

// SendMessage stores a message and pushes it to the receiver and back to the sender.
// The sender's copy is what the client renders; it does not insert locally.
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	receiverID := c.Params("userId")
	ctx := c.UserContext()

	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	text := strings.TrimSpace(req.Text)
	if (text == "") == (req.Image == "") {
		return fail(c, fiber.StatusBadRequest, "Exactly one of text or image is required")
	}

	if _, err := h.Store.UserByID(ctx, receiverID); errors.Is(err, store.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Receiver not found")
	} else if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Database error")
	}

	msg := models.Message{
		SenderID:   userID,
		ReceiverID: receiverID,
		Text:       text,
	}

	if req.Image != "" {
		url, err := h.Media.SaveDataURL(media.KindImages, req.Image)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid image: "+err.Error())
		}
		msg.Image = url
	}

	if err := h.Store.CreateMessage(ctx, &msg); err != nil {
		h.Log.Error().Err(err).Msg("create message")
		return fail(c, fiber.StatusInternalServerError, "Failed to send message")
	}

	h.Hub.BroadcastToUsers([]string{receiverID, userID}, ws.NewEvent(ws.EventNewMessage, msg))

	return c.Status(fiber.StatusCreated).JSON(models.SendMessageResponse{
		Success:    true,
		NewMessage: &msg,
	})
}

// MarkMessageAsSeen marks a single message as seen. Only its receiver may do so.
func (h *Handler) MarkMessageAsSeen(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	messageID := c.Params("messageId")

	err := h.Store.MarkSeen(c.UserContext(), messageID, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Message not found")
	case errors.Is(err, store.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Message not found or you don't have permission")
	case err != nil:
		h.Log.Error().Err(err).Str("message", messageID).Msg("mark seen")
		return fail(c, fiber.StatusInternalServerError, "Failed to mark message")
	}

	return c.JSON(models.StatusResponse{Success: true})
}
