package chat

import (
	"context"
	"errors"
	"sync"

	"quickchat/internal/models"

	"github.com/rs/zerolog"
)

var ErrNotInitialized = errors.New("chat session not initialized")

// Controller owns the lifecycle of one logged-in chat session: it builds the
// session, store, synchronizer and view on Init and tears them all down on
// Teardown. Selection changes go through it so the event listener is rebound
// exactly when the conversation changes.
type Controller struct {
	api    API
	events Events
	notify Notifier
	log    zerolog.Logger

	mu      sync.Mutex
	session *Session
	store   *Store
	sync    *Synchronizer
	view    *View
}

// NewController wires the transport handles; nothing runs until Init
func NewController(api API, events Events, notify Notifier, log zerolog.Logger) *Controller {
	return &Controller{api: api, events: events, notify: notify, log: log}
}

// Init starts a session for self. A running session is torn down first.
// Failing to load the contact list is reported but does not fail Init.
func (c *Controller) Init(ctx context.Context, self models.UserResponse) error {
	c.Teardown()

	session := NewSession(c.api, c.events, self, c.log)
	store := NewStore(session, c.notify)
	syncer := NewSynchronizer(session, store)
	view := NewView(session, store, c.notify)

	session.bindPresence()
	syncer.Rebind()

	c.mu.Lock()
	c.session, c.store, c.sync, c.view = session, store, syncer, view
	c.mu.Unlock()

	if err := store.LoadUsers(ctx); err != nil {
		c.log.Warn().Err(err).Msg("initial contact list load failed")
	}
	return nil
}

// Teardown removes every listener and waits for background requests.
// Safe to call more than once.
func (c *Controller) Teardown() {
	c.mu.Lock()
	session, syncer, view := c.session, c.sync, c.view
	c.session, c.store, c.sync, c.view = nil, nil, nil, nil
	c.mu.Unlock()

	if session == nil {
		return
	}

	syncer.Unbind()
	session.unbindPresence()
	view.Close()
	syncer.Wait()
}

// Select changes the active conversation. A change of user rebinds the
// message listener and starts the history fetch; reselecting the same user
// does neither.
func (c *Controller) Select(user *models.UserResponse) error {
	c.mu.Lock()
	store, syncer, view := c.store, c.sync, c.view
	c.mu.Unlock()

	if store == nil {
		return ErrNotInitialized
	}
	if sameUser(store.Selected(), user) {
		return nil
	}

	// render callbacks run inside view.Select, so c.mu must not be held here
	view.Select(user)
	syncer.Rebind()
	return nil
}

// SelectByID selects a contact from the loaded list
func (c *Controller) SelectByID(userID string) error {
	store := c.Store()
	if store == nil {
		return ErrNotInitialized
	}
	for _, u := range store.Users() {
		if u.ID == userID {
			return c.Select(&u)
		}
	}
	return errors.New("unknown contact: " + userID)
}

// Refresh reloads the contact list and unseen counts
func (c *Controller) Refresh(ctx context.Context) error {
	store := c.Store()
	if store == nil {
		return ErrNotInitialized
	}
	return store.LoadUsers(ctx)
}

// Session returns the running session, or nil
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Store returns the running session's store, or nil
func (c *Controller) Store() *Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// View returns the running session's view, or nil
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Synchronizer returns the running session's synchronizer, or nil
func (c *Controller) Synchronizer() *Synchronizer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sync
}

func sameUser(a, b *models.UserResponse) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
