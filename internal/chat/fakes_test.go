package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"quickchat/internal/models"

	"github.com/rs/zerolog"
)

type fakeAPI struct {
	mu       sync.Mutex
	users    *models.UsersResponse
	usersErr error
	history  map[string][]models.Message
	sendErr  error
	markErr  error

	// messagesFn overrides the canned history when set
	messagesFn func(ctx context.Context, userID string) ([]models.Message, error)

	fetched []string
	sent    []sentMessage
	marked  []string
}

type sentMessage struct {
	To  string
	Req models.SendMessageRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{history: map[string][]models.Message{}}
}

func (f *fakeAPI) ListUsers(ctx context.Context) (*models.UsersResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	if f.users == nil {
		return &models.UsersResponse{Success: true, UnseenMessages: map[string]int{}}, nil
	}
	return f.users, nil
}

func (f *fakeAPI) Messages(ctx context.Context, userID string) ([]models.Message, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, userID)
	fn := f.messagesFn
	history := f.history[userID]
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, userID)
	}
	return history, nil
}

func (f *fakeAPI) Send(ctx context.Context, userID string, req models.SendMessageRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{To: userID, Req: req})
	return &models.Message{ID: "srv", ReceiverID: userID, Text: req.Text, Image: req.Image}, nil
}

func (f *fakeAPI) MarkSeen(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	return f.markErr
}

func (f *fakeAPI) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func (f *fakeAPI) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeAPI) Marked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

type fakeEvents struct {
	mu        sync.Mutex
	next      int
	listeners map[string]map[int]func([]byte)
	emitted   []string
	emitErr   error
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{listeners: map[string]map[int]func([]byte){}}
}

func (e *fakeEvents) Subscribe(event string, fn func(payload []byte)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	id := e.next
	if e.listeners[event] == nil {
		e.listeners[event] = map[int]func([]byte){}
	}
	e.listeners[event][id] = fn

	return func() {
		e.mu.Lock()
		delete(e.listeners[event], id)
		e.mu.Unlock()
	}
}

func (e *fakeEvents) Emit(event string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.emitErr != nil {
		return e.emitErr
	}
	e.emitted = append(e.emitted, event)
	return nil
}

func (e *fakeEvents) Emitted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.emitted...)
}

// Listener returns the single listener registered for event
func (e *fakeEvents) Listener(t *testing.T, event string) func([]byte) {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.listeners[event]) != 1 {
		t.Fatalf("%d listeners for %s", len(e.listeners[event]), event)
	}
	for _, fn := range e.listeners[event] {
		return fn
	}
	return nil
}

// Deliver pushes one server event to the current listeners
func (e *fakeEvents) Deliver(t *testing.T, event string, payload interface{}) {
	t.Helper()

	var data []byte
	switch p := payload.(type) {
	case string:
		data = []byte(p)
	default:
		var err error
		if data, err = json.Marshal(p); err != nil {
			t.Fatal(err)
		}
	}

	e.mu.Lock()
	fns := make([]func([]byte), 0, len(e.listeners[event]))
	for _, fn := range e.listeners[event] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}

func (e *fakeEvents) Count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

var me = models.UserResponse{ID: "me", FullName: "Me"}

type fixture struct {
	api    *fakeAPI
	events *fakeEvents
	notify *fakeNotifier
	sess   *Session
	store  *Store
	sync   *Synchronizer
	view   *View
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		api:    newFakeAPI(),
		events: newFakeEvents(),
		notify: &fakeNotifier{},
	}
	f.sess = NewSession(f.api, f.events, me, zerolog.Nop())
	f.store = NewStore(f.sess, f.notify)
	f.sync = NewSynchronizer(f.sess, f.store)
	f.view = NewView(f.sess, f.store, f.notify)
	t.Cleanup(func() {
		f.sync.Unbind()
		f.view.Close()
		f.sync.Wait()
	})
	return f
}

func user(id string) *models.UserResponse {
	return &models.UserResponse{ID: id, FullName: "User " + id}
}
