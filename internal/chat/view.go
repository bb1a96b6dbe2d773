package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"quickchat/internal/media"
	"quickchat/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoConversation = errors.New("no conversation selected")
	ErrNotImage       = errors.New("please select a valid image file")
)

const defaultFetchTimeout = 15 * time.Second

// Frame is what a renderer needs to draw the conversation pane
type Frame struct {
	Selected         *models.UserResponse
	Online           bool
	Messages         []models.Message
	AutoScroll       bool
	ShowScrollButton bool
}

// View drives the conversation pane: selection, history fetches, sending and
// the scroll policy. Sends never insert locally; the server echo does.
type View struct {
	session *Session
	store   *Store
	notify  Notifier
	Scroll  *ScrollTracker

	// FetchTimeout bounds each history request
	FetchTimeout time.Duration

	mu          sync.Mutex
	cancelFetch context.CancelFunc
	lastVersion uint64
	render      func(Frame)
	fetches     sync.WaitGroup
}

// NewView creates the conversation pane controller and hooks it to the store
func NewView(session *Session, store *Store, notify Notifier) *View {
	v := &View{
		session:      session,
		store:        store,
		notify:       notify,
		Scroll:       NewScrollTracker(DefaultScrollThreshold),
		FetchTimeout: defaultFetchTimeout,
	}
	store.OnChange(v.storeChanged)
	return v
}

// OnRender sets the function that receives a Frame after every store change
func (v *View) OnRender(fn func(Frame)) {
	v.mu.Lock()
	v.render = fn
	v.mu.Unlock()
}

func (v *View) storeChanged() {
	messages, version := v.store.MessagesVersion()

	v.mu.Lock()
	changed := version != v.lastVersion
	v.lastVersion = version
	render := v.render
	v.mu.Unlock()

	if render == nil {
		return
	}

	autoScroll := false
	if changed {
		autoScroll = v.Scroll.MessagesChanged()
	}

	selected := v.store.Selected()
	render(Frame{
		Selected:         selected,
		Online:           selected != nil && v.session.IsOnline(selected.ID),
		Messages:         messages,
		AutoScroll:       autoScroll,
		ShowScrollButton: v.Scroll.ShowScrollButton(),
	})
}

// Select switches the active conversation. Choosing a different user starts
// exactly one background history fetch and cancels the previous one; the old
// list stays visible until the fetch lands. It reports whether a fetch started.
func (v *View) Select(user *models.UserResponse) bool {
	prev := v.store.Selected()
	v.store.SelectConversation(user)

	if user == nil || (prev != nil && prev.ID == user.ID) {
		if user == nil {
			v.cancelInFlight()
		}
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.FetchTimeout)

	v.mu.Lock()
	if v.cancelFetch != nil {
		v.cancelFetch()
	}
	v.cancelFetch = cancel
	v.mu.Unlock()

	userID := user.ID
	v.fetches.Add(1)
	go func() {
		defer v.fetches.Done()
		defer cancel()
		_ = v.store.LoadMessages(ctx, userID)
	}()
	return true
}

func (v *View) cancelInFlight() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancelFetch != nil {
		v.cancelFetch()
		v.cancelFetch = nil
	}
}

// Wait blocks until every history fetch started so far has finished
func (v *View) Wait() {
	v.fetches.Wait()
}

// Close cancels any in-flight fetch and waits for it
func (v *View) Close() {
	v.cancelInFlight()
	v.fetches.Wait()
}

// SendText sends the trimmed input to the open conversation. Blank input is ignored.
func (v *View) SendText(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}
	return v.send(ctx, models.SendMessageRequest{Text: text})
}

// SendImage sends an image inline as a data URL. declaredType is the file's
// MIME type as reported by the picker; when empty the bytes are sniffed.
func (v *View) SendImage(ctx context.Context, data []byte, declaredType string) error {
	mimeType := declaredType
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if len(data) == 0 || !strings.HasPrefix(mimeType, "image/") {
		v.notify.Notify(ErrNotImage.Error())
		return ErrNotImage
	}

	// strip parameters such as "; charset=..."
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return v.send(ctx, models.SendMessageRequest{Image: media.EncodeDataURL(mimeType, data)})
}

func (v *View) send(ctx context.Context, req models.SendMessageRequest) error {
	selected := v.store.Selected()
	if selected == nil {
		v.notify.Notify(ErrNoConversation.Error())
		return ErrNoConversation
	}

	if _, err := v.session.API.Send(ctx, selected.ID, req); err != nil {
		v.notify.Notify(err.Error())
		return err
	}
	return nil
}
