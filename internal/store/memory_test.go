package store

import (
	"context"
	"testing"

	"quickchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, s *Memory, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		u := models.User{Email: name + "@example.com", FullName: name, Password: "x"}
		require.NoError(t, s.CreateUser(context.Background(), &u))
		users = append(users, u)
	}
	return users
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	users := seedUsers(t, s, "carol", "alice", "bob")

	dup := models.User{Email: "ALICE@example.com", FullName: "Alice 2"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrEmailTaken)

	got, err := s.UserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, users[1].ID, got.ID)

	_, err = s.UserByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListUsersExcept(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].FullName)
	assert.Equal(t, "bob", list[1].FullName)

	bio := "hello"
	updated, err := s.UpdateProfile(ctx, users[2].ID, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "bob", updated.FullName)
}

func TestMemoryMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	users := seedUsers(t, s, "me", "b1", "x9")
	me, b1, x9 := users[0].ID, users[1].ID, users[2].ID

	for _, m := range []models.Message{
		{SenderID: b1, ReceiverID: me, Text: "hi"},
		{SenderID: me, ReceiverID: b1, Text: "yo"},
		{SenderID: x9, ReceiverID: me, Text: "hey"},
		{SenderID: b1, ReceiverID: me, Text: "again"},
	} {
		m := m
		require.NoError(t, s.CreateMessage(ctx, &m))
	}

	counts, err := s.UnseenCounts(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{b1: 2, x9: 1}, counts)

	conv, err := s.Conversation(ctx, me, b1)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "hi", conv[0].Text)
	assert.Equal(t, "again", conv[2].Text)

	require.NoError(t, s.MarkConversationSeen(ctx, b1, me))
	counts, err = s.UnseenCounts(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{x9: 1}, counts)

	others, err := s.Conversation(ctx, me, x9)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.ErrorIs(t, s.MarkSeen(ctx, others[0].ID, b1), ErrForbidden)
	assert.ErrorIs(t, s.MarkSeen(ctx, "missing", me), ErrNotFound)
	require.NoError(t, s.MarkSeen(ctx, others[0].ID, me))

	counts, err = s.UnseenCounts(ctx, me)
	require.NoError(t, err)
	assert.Empty(t, counts)
}
