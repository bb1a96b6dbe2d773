package chat

import (
	"context"
	"sync"

	"quickchat/internal/models"
)

// Store is the client's view of contacts, unseen counts, the selected
// conversation and its messages. All mutations go through Update so that a
// read-then-write (classifying an event against the selection) is atomic.
type Store struct {
	session *Session
	notify  Notifier

	mu       sync.Mutex
	users    []models.UserResponse
	unseen   map[string]int
	selected *models.UserResponse
	messages []models.Message
	version  uint64 // bumped whenever messages changes

	obsMu     sync.Mutex
	observers []func()
}

// NewStore creates an empty store for session
func NewStore(session *Session, notify Notifier) *Store {
	return &Store{
		session: session,
		notify:  notify,
		unseen:  make(map[string]int),
	}
}

// Tx is the mutable state handed to Update callbacks
type Tx struct {
	s       *Store
	changed bool
}

// Selected returns the active conversation user, or nil
func (tx *Tx) Selected() *models.UserResponse {
	return tx.s.selected
}

// AppendMessage adds m to the end of the visible list
func (tx *Tx) AppendMessage(m models.Message) {
	tx.s.messages = append(tx.s.messages, m)
	tx.s.version++
	tx.changed = true
}

// IncrementUnseen bumps the unseen counter for userID
func (tx *Tx) IncrementUnseen(userID string) {
	tx.s.unseen[userID]++
	tx.changed = true
}

// Update runs fn with exclusive access to the state and notifies observers
// afterwards if fn changed anything.
func (s *Store) Update(fn func(tx *Tx)) {
	tx := &Tx{s: s}
	s.mu.Lock()
	fn(tx)
	s.mu.Unlock()

	if tx.changed {
		s.emit()
	}
}

// OnChange registers fn to run after every state change
func (s *Store) OnChange(fn func()) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) emit() {
	s.obsMu.Lock()
	observers := append([]func(){}, s.observers...)
	s.obsMu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

// LoadUsers replaces the contact list and unseen counts with the server's.
// On failure the user is notified and the state is left as it was.
func (s *Store) LoadUsers(ctx context.Context) error {
	resp, err := s.session.API.ListUsers(ctx)
	if err != nil {
		s.notify.Notify(err.Error())
		return err
	}

	unseen := make(map[string]int, len(resp.UnseenMessages))
	for id, n := range resp.UnseenMessages {
		unseen[id] = n
	}

	s.mu.Lock()
	s.users = append([]models.UserResponse(nil), resp.Users...)
	s.unseen = unseen
	s.mu.Unlock()

	s.emit()
	return nil
}

// LoadMessages replaces the message list with the history for userID. Events
// appended while the request was in flight are overwritten. A result that
// arrives after the selection moved to someone else is discarded.
func (s *Store) LoadMessages(ctx context.Context, userID string) error {
	messages, err := s.session.API.Messages(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			s.notify.Notify(err.Error())
		}
		return err
	}

	s.mu.Lock()
	if s.selected == nil || s.selected.ID != userID {
		s.mu.Unlock()
		s.session.Log.Debug().Str("peer", userID).Msg("dropping history for a conversation no longer open")
		return nil
	}
	s.messages = append([]models.Message(nil), messages...)
	s.version++
	s.mu.Unlock()

	s.emit()
	return nil
}

// SelectConversation sets the active conversation. It clears neither the
// message list nor the user's unseen count.
func (s *Store) SelectConversation(user *models.UserResponse) {
	var sel *models.UserResponse
	if user != nil {
		u := *user
		sel = &u
	}

	s.mu.Lock()
	s.selected = sel
	s.mu.Unlock()

	s.emit()
}

// AppendMessage adds m to the end of the visible list
func (s *Store) AppendMessage(m models.Message) {
	s.Update(func(tx *Tx) { tx.AppendMessage(m) })
}

// IncrementUnseen bumps the unseen counter for userID
func (s *Store) IncrementUnseen(userID string) {
	s.Update(func(tx *Tx) { tx.IncrementUnseen(userID) })
}

// Users returns a copy of the contact list
func (s *Store) Users() []models.UserResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserResponse(nil), s.users...)
}

// Messages returns a copy of the visible message list
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// MessagesVersion returns a copy of the message list and a counter that
// changes whenever the list does
func (s *Store) MessagesVersion() ([]models.Message, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...), s.version
}

// UnseenCounts returns a copy of the unseen map
func (s *Store) UnseenCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.unseen))
	for id, n := range s.unseen {
		out[id] = n
	}
	return out
}

// Unseen returns the unseen count for one user
func (s *Store) Unseen(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unseen[userID]
}

// Selected returns a copy of the active conversation user, or nil
func (s *Store) Selected() *models.UserResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return nil
	}
	u := *s.selected
	return &u
}
