package chat

import (
	"errors"
	"testing"

	"quickchat/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T) (*Controller, *fakeAPI, *fakeEvents) {
	t.Helper()

	api := newFakeAPI()
	api.users = &models.UsersResponse{
		Success:        true,
		Users:          []models.UserResponse{*user("b1"), *user("c2")},
		UnseenMessages: map[string]int{"c2": 1},
	}
	events := newFakeEvents()
	c := NewController(api, events, &fakeNotifier{}, zerolog.Nop())
	t.Cleanup(c.Teardown)
	return c, api, events
}

func TestControllerInitBindsAndLoads(t *testing.T) {
	c, _, events := newController(t)

	require.NoError(t, c.Init(t.Context(), me))

	assert.Equal(t, 1, events.Count(EventNewMessage))
	assert.Equal(t, 1, events.Count(EventGetOnlineUsers))
	assert.Len(t, c.Store().Users(), 2)
	assert.Equal(t, 1, c.Store().Unseen("c2"))
	assert.True(t, c.Synchronizer().Bound())
}

func TestControllerSelectRebindsOnChange(t *testing.T) {
	c, api, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))

	require.NoError(t, c.SelectByID("b1"))
	require.NoError(t, c.Select(user("b1")))
	c.View().Wait()

	assert.Equal(t, []string{"b1"}, api.Fetched())
	assert.Equal(t, 1, events.Count(EventNewMessage))

	events.Deliver(t, EventNewMessage, models.Message{ID: "m1", SenderID: "b1", ReceiverID: "me"})
	c.Synchronizer().Wait()
	assert.Len(t, c.Store().Messages(), 1)
	assert.Equal(t, []string{"m1"}, api.Marked())

	require.NoError(t, c.Select(nil))
	assert.Nil(t, c.Store().Selected())
	assert.Equal(t, 1, events.Count(EventNewMessage))

	assert.Error(t, c.SelectByID("nobody"))
}

func TestControllerPresence(t *testing.T) {
	c, _, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))

	events.Deliver(t, EventGetOnlineUsers, []string{"c2", "b1"})

	assert.True(t, c.Session().IsOnline("b1"))
	assert.False(t, c.Session().IsOnline("x9"))
	assert.Equal(t, []string{"b1", "c2"}, c.Session().OnlineUsers())

	events.Deliver(t, EventGetOnlineUsers, `{"bad":true}`)
	assert.True(t, c.Session().IsOnline("b1"))
}

func TestControllerTeardown(t *testing.T) {
	c, _, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))
	require.NoError(t, c.Select(user("b1")))

	c.Teardown()
	c.Teardown()

	assert.Zero(t, events.Count(EventNewMessage))
	assert.Zero(t, events.Count(EventGetOnlineUsers))
	assert.Nil(t, c.Store())
	assert.ErrorIs(t, c.Select(user("c2")), ErrNotInitialized)
	assert.ErrorIs(t, c.Refresh(t.Context()), ErrNotInitialized)
}

func TestControllerInitTwiceReplacesSession(t *testing.T) {
	c, _, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))
	first := c.Store()

	require.NoError(t, c.Init(t.Context(), me))

	assert.NotSame(t, first, c.Store())
	assert.Equal(t, 1, events.Count(EventNewMessage))
	assert.Equal(t, 1, events.Count(EventGetOnlineUsers))
}

func TestControllerInitRequestsOnlineUsers(t *testing.T) {
	c, _, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))

	assert.Equal(t, []string{EventGetOnlineUsers}, events.Emitted())

	// the request is best effort
	events.emitErr = errors.New("socket not connected")
	require.NoError(t, c.Init(t.Context(), me))
	assert.Equal(t, 1, events.Count(EventGetOnlineUsers))
}

func TestControllerTeardownStopsStaleDelivery(t *testing.T) {
	c, api, events := newController(t)
	require.NoError(t, c.Init(t.Context(), me))
	require.NoError(t, c.Select(user("b1")))
	c.View().Wait()

	store := c.Store()
	listener := events.Listener(t, EventNewMessage)
	c.Teardown()

	listener([]byte(`{"_id":"late","senderId":"b1","receiverId":"me","text":"hi"}`))

	assert.Empty(t, store.Messages())
	assert.Empty(t, api.Marked())
}
