package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"quickchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSelectFetchesOncePerTransition(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.view.Select(nil))
	assert.True(t, f.view.Select(user("b1")))
	assert.False(t, f.view.Select(user("b1")))
	assert.True(t, f.view.Select(user("c2")))
	assert.True(t, f.view.Select(user("b1")))
	f.view.Wait()

	assert.ElementsMatch(t, []string{"b1", "c2", "b1"}, f.api.Fetched())
}

func TestSelectKeepsOldListUntilFetchLands(t *testing.T) {
	f := newFixture(t)
	f.api.history["b1"] = []models.Message{{ID: "b-history"}}
	f.view.Select(user("b1"))
	f.view.Wait()

	release := make(chan struct{})
	f.api.messagesFn = func(ctx context.Context, userID string) ([]models.Message, error) {
		<-release
		return []models.Message{{ID: "c-history"}}, nil
	}
	f.view.Select(user("c2"))

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "b-history", msgs[0].ID)

	close(release)
	f.view.Wait()

	msgs = f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "c-history", msgs[0].ID)
}

func TestNewerSelectionCancelsOlderFetch(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	f.api.messagesFn = func(ctx context.Context, userID string) ([]models.Message, error) {
		if userID == "b1" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []models.Message{{ID: "c-history"}}, nil
	}

	f.view.Select(user("b1"))
	<-started
	f.view.Select(user("c2"))
	f.view.Wait()

	msgs := f.store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "c-history", msgs[0].ID)
	assert.Empty(t, f.notify.Messages())
}

func TestSendTextIgnoresBlankInput(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	require.NoError(t, f.view.SendText(context.Background(), ""))
	require.NoError(t, f.view.SendText(context.Background(), "   \n\t"))

	assert.Empty(t, f.api.Sent())
	assert.Empty(t, f.notify.Messages())
}

func TestSendTextTrimsAndWaitsForEcho(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	require.NoError(t, f.view.SendText(context.Background(), "  hello  "))

	sent := f.api.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "b1", sent[0].To)
	assert.Equal(t, "hello", sent[0].Req.Text)
	assert.Empty(t, f.store.Messages())
}

func TestSendWithoutConversation(t *testing.T) {
	f := newFixture(t)

	err := f.view.SendText(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrNoConversation)
	assert.Empty(t, f.api.Sent())
	assert.Equal(t, []string{ErrNoConversation.Error()}, f.notify.Messages())
}

func TestSendFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.api.sendErr = errors.New("server returned 400: Message text or image is required")
	f.store.SelectConversation(user("b1"))

	require.Error(t, f.view.SendText(context.Background(), "hi"))
	assert.Equal(t, []string{"server returned 400: Message text or image is required"}, f.notify.Messages())
}

func TestSendImageRejectsNonImage(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	err := f.view.SendImage(context.Background(), []byte("plain text"), "text/plain")
	assert.ErrorIs(t, err, ErrNotImage)

	err = f.view.SendImage(context.Background(), []byte("plain text"), "")
	assert.ErrorIs(t, err, ErrNotImage)

	assert.Empty(t, f.api.Sent())
	assert.Equal(t, []string{ErrNotImage.Error(), ErrNotImage.Error()}, f.notify.Messages())
}

func TestSendImageSniffsAndEncodes(t *testing.T) {
	f := newFixture(t)
	f.store.SelectConversation(user("b1"))

	require.NoError(t, f.view.SendImage(context.Background(), pngHeader, ""))
	require.NoError(t, f.view.SendImage(context.Background(), pngHeader, "image/png; foo=bar"))

	sent := f.api.Sent()
	require.Len(t, sent, 2)
	for _, s := range sent {
		assert.True(t, strings.HasPrefix(s.Req.Image, "data:image/png;base64,"), s.Req.Image)
		assert.Empty(t, s.Req.Text)
	}
	assert.Empty(t, f.store.Messages())
}

func TestRenderFrames(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var frames []Frame
	f.view.OnRender(func(fr Frame) {
		mu.Lock()
		frames = append(frames, fr)
		mu.Unlock()
	})

	f.sess.setOnline([]string{"b1"})
	f.store.SelectConversation(user("b1"))
	f.store.AppendMessage(models.Message{ID: "m1", SenderID: "b1"})

	f.view.Scroll.OnScroll(2000, 0, 500)
	f.store.AppendMessage(models.Message{ID: "m2", SenderID: "b1"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, frames, 3)

	// selection alone does not touch the list
	assert.False(t, frames[0].AutoScroll)
	assert.True(t, frames[0].Online)

	assert.True(t, frames[1].AutoScroll)
	assert.Len(t, frames[1].Messages, 1)

	assert.False(t, frames[2].AutoScroll)
	assert.True(t, frames[2].ShowScrollButton)
	assert.Len(t, frames[2].Messages, 2)
}
