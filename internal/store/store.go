// Package store persists users and direct messages for the chat server.
package store

import (
	"context"
	"errors"

	"quickchat/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrForbidden  = errors.New("forbidden")
)

// Store is the persistence surface used by the HTTP handlers
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
	// ListUsersExcept returns every user but the given one, ordered by name.
	ListUsersExcept(ctx context.Context, id string) ([]models.User, error)
	// UnseenCounts returns, per sender, how many unseen messages receiverID has.
	// Senders with no unseen messages are omitted.
	UnseenCounts(ctx context.Context, receiverID string) (map[string]int, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	// Conversation returns every message exchanged between a and b, oldest first.
	Conversation(ctx context.Context, a, b string) ([]models.Message, error)
	// MarkConversationSeen marks all messages from senderID to receiverID as seen.
	MarkConversationSeen(ctx context.Context, senderID, receiverID string) error
	// MarkSeen marks one message as seen. Only its receiver may do so.
	MarkSeen(ctx context.Context, messageID, receiverID string) error
}
