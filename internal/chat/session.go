// Package chat is the client-side conversation core: it keeps the contact
// list, unseen counts and the open conversation in sync with the server's
// event stream.
package chat

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"quickchat/internal/models"

	"github.com/rs/zerolog"
)

// Event names pushed by the server
const (
	EventNewMessage     = "newMessage"
	EventGetOnlineUsers = "getOnlineUsers"
)

// API is the part of the REST surface the conversation core calls
type API interface {
	ListUsers(ctx context.Context) (*models.UsersResponse, error)
	Messages(ctx context.Context, userID string) ([]models.Message, error)
	Send(ctx context.Context, userID string, req models.SendMessageRequest) (*models.Message, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// Events is the server event stream. Subscribe returns the function that
// removes exactly that subscription; Emit sends a request frame.
type Events interface {
	Subscribe(event string, fn func(payload []byte)) func()
	Emit(event string, payload interface{}) error
}

// Notifier shows non-blocking notices to the user
type Notifier interface {
	Notify(message string)
}

// LogNotifier writes notices to a logger
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(message string) {
	n.Log.Warn().Msg(message)
}

// Session is the authenticated context handed to every component: the
// transport handles, the logged-in user and the online-id set.
type Session struct {
	API    API
	Events Events
	Self   models.UserResponse
	Log    zerolog.Logger

	mu           sync.RWMutex
	online       map[string]struct{}
	stopPresence func()
}

// NewSession binds a session to a logged-in user
func NewSession(api API, events Events, self models.UserResponse, log zerolog.Logger) *Session {
	return &Session{
		API:    api,
		Events: events,
		Self:   self,
		Log:    log.With().Str("self", self.ID).Logger(),
		online: make(map[string]struct{}),
	}
}

// IsOnline reports whether userID is in the last pushed online set
func (s *Session) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

// OnlineUsers returns the last pushed online set, sorted
func (s *Session) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) setOnline(ids []string) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.mu.Lock()
	s.online = set
	s.mu.Unlock()
}

func (s *Session) bindPresence() {
	s.unbindPresence()
	stop := s.Events.Subscribe(EventGetOnlineUsers, func(payload []byte) {
		var ids []string
		if err := json.Unmarshal(payload, &ids); err != nil {
			s.Log.Warn().Err(err).Msg("invalid online users payload")
			return
		}
		s.setOnline(ids)
	})

	s.mu.Lock()
	s.stopPresence = stop
	s.mu.Unlock()

	// the broadcast sent on connect may have arrived before this listener existed
	if err := s.Events.Emit(EventGetOnlineUsers, nil); err != nil {
		s.Log.Warn().Err(err).Msg("failed to request online users")
	}
}

func (s *Session) unbindPresence() {
	s.mu.Lock()
	stop := s.stopPresence
	s.stopPresence = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}
