package chat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"quickchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFromActiveUserIsShownAndMarkedSeen(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))
	f.sync.Rebind()

	f.events.Deliver(t, EventNewMessage, models.Message{ID: "m1", SenderID: "b1", ReceiverID: "me", Text: "hi"})
	f.sync.Wait()

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.True(t, msgs[0].Seen)
	assert.Equal(t, []string{"m1"}, f.api.Marked())
	assert.Zero(t, f.store.Unseen("b1"))
}

func TestMessageWithNoConversationOpenCountsUnseen(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()

	require.Zero(t, f.store.Unseen("x9"))
	f.events.Deliver(t, EventNewMessage, models.Message{ID: "m2", SenderID: "x9", ReceiverID: "me", Text: "yo"})
	f.sync.Wait()

	assert.Equal(t, 1, f.store.Unseen("x9"))
	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.api.Marked())
}

func TestOwnEchoToActiveUserIsShownWithoutMarkSeen(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	route := f.sync.Handle(&models.Message{ID: "m3", SenderID: "me", ReceiverID: "b1", Text: "sent"})
	f.sync.Wait()

	assert.Equal(t, RouteVisible, route)
	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Seen)
	assert.Empty(t, f.api.Marked())
}

func TestMessageFromOtherUserWhileConversationOpen(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	route := f.sync.Handle(&models.Message{ID: "m4", SenderID: "x9", ReceiverID: "me", Text: "psst"})

	assert.Equal(t, RouteUnseen, route)
	assert.Equal(t, 1, f.store.Unseen("x9"))
	assert.Empty(t, f.store.Messages())
}

func TestOwnEchoToAnotherUserIsDropped(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	route := f.sync.Handle(&models.Message{ID: "m5", SenderID: "me", ReceiverID: "c2", Text: "elsewhere"})

	assert.Equal(t, RouteDropped, route)
	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.store.UnseenCounts())
}

func TestOwnEchoWithNoConversationOpenIsDropped(t *testing.T) {
	f := newFixture(t)

	route := f.sync.Handle(&models.Message{ID: "m6", SenderID: "me", ReceiverID: "b1", Text: "x"})

	assert.Equal(t, RouteDropped, route)
	assert.Empty(t, f.store.UnseenCounts())
}

func TestMalformedEventsChangeNothing(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))
	f.sync.Rebind()

	changes := 0
	f.store.OnChange(func() { changes++ })

	f.events.Deliver(t, EventNewMessage, map[string]string{"text": "oops"})
	f.events.Deliver(t, EventNewMessage, "null")
	f.events.Deliver(t, EventNewMessage, "{not json")
	f.events.Deliver(t, EventNewMessage, `"just a string"`)
	f.sync.Wait()

	assert.Zero(t, changes)
	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.store.UnseenCounts())
	assert.Empty(t, f.api.Marked())
	assert.Equal(t, RouteRejected, f.sync.Handle(nil))
}

func TestRebindNeverDoubleClassifies(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()
	f.sync.Rebind()
	f.sync.Rebind()

	require.Equal(t, 1, f.events.Count(EventNewMessage))

	f.events.Deliver(t, EventNewMessage, models.Message{ID: "m7", SenderID: "x9", ReceiverID: "me", Text: "once"})
	assert.Equal(t, 1, f.store.Unseen("x9"))
}

func TestUnbindStopsRouting(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()
	require.True(t, f.sync.Bound())

	f.sync.Unbind()
	f.sync.Unbind()

	assert.False(t, f.sync.Bound())
	assert.Zero(t, f.events.Count(EventNewMessage))

	f.events.Deliver(t, EventNewMessage, models.Message{ID: "m8", SenderID: "x9", ReceiverID: "me"})
	assert.Empty(t, f.store.UnseenCounts())
}

func TestMarkSeenFailureKeepsMessage(t *testing.T) {
	f := newFixture(t)
	f.api.markErr = errors.New("boom")
	f.store.SelectConversation(user("b1"))

	m := &models.Message{ID: "m9", SenderID: "b1", ReceiverID: "me", Text: "hi"}
	route := f.sync.Handle(m)
	f.sync.Wait()

	assert.Equal(t, RouteVisible, route)
	assert.True(t, m.Seen)
	require.Len(t, f.store.Messages(), 1)
	assert.True(t, f.store.Messages()[0].Seen)
	assert.Equal(t, []string{"m9"}, f.api.Marked())
	assert.Empty(t, f.notify.Messages())
}

func TestSelectionIsReadAtClassificationTime(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()

	f.events.Deliver(t, EventNewMessage, models.Message{ID: "a", SenderID: "b1", ReceiverID: "me"})
	f.store.SelectConversation(user("b1"))
	f.events.Deliver(t, EventNewMessage, models.Message{ID: "b", SenderID: "b1", ReceiverID: "me"})
	f.sync.Wait()

	assert.Equal(t, 1, f.store.Unseen("b1"))
	require.Len(t, f.store.Messages(), 1)
	assert.Equal(t, "b", f.store.Messages()[0].ID)
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "visible", RouteVisible.String())
	assert.Equal(t, "unseen", RouteUnseen.String())
	assert.Equal(t, "dropped", RouteDropped.String())
	assert.Equal(t, "rejected", RouteRejected.String())
}

func TestEventInFlightAtUnbindIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))
	f.sync.Rebind()

	// the transport took its listener snapshot before Unbind
	listener := f.events.Listener(t, EventNewMessage)
	f.sync.Unbind()

	listener([]byte(`{"_id":"late","senderId":"b1","receiverId":"me","text":"hi"}`))
	f.sync.Wait()

	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.api.Marked())
}

func TestUnbindWaitsForEventBeingHandled(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.OnChange(func() {
		once.Do(func() { close(entered) })
		<-release
	})

	go func() { f.events.Deliver(t, EventNewMessage, models.Message{ID: "m1", SenderID: "x9", ReceiverID: "me"}) }()
	<-entered

	unbound := make(chan struct{})
	go func() {
		f.sync.Unbind()
		close(unbound)
	}()

	select {
	case <-unbound:
		t.Fatal("Unbind returned while an event was being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-unbound:
	case <-time.After(time.Second):
		t.Fatal("Unbind did not return")
	}
	assert.Equal(t, 1, f.store.Unseen("x9"))
}

func TestRebindAfterUnbindRoutesAgain(t *testing.T) {
	f := newFixture(t)
	f.sync.Rebind()
	f.sync.Unbind()
	f.sync.Rebind()

	f.events.Deliver(t, EventNewMessage, models.Message{ID: "m1", SenderID: "x9", ReceiverID: "me"})
	assert.Equal(t, 1, f.store.Unseen("x9"))
}
