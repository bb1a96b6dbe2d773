package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quickchat/internal/models"
)

// Route is where the synchronizer sent one inbound message
type Route int

const (
	RouteRejected Route = iota // malformed payload
	RouteVisible               // appended to the open conversation
	RouteUnseen                // counted against its sender
	RouteDropped               // own echo for a conversation that is not open
)

func (r Route) String() string {
	switch r {
	case RouteVisible:
		return "visible"
	case RouteUnseen:
		return "unseen"
	case RouteDropped:
		return "dropped"
	default:
		return "rejected"
	}
}

const defaultMarkSeenTimeout = 10 * time.Second

// Synchronizer classifies every newMessage event against the open
// conversation and routes it into the store exactly once.
type Synchronizer struct {
	session *Session
	store   *Store

	// MarkSeenTimeout bounds each background mark-seen request
	MarkSeenTimeout time.Duration

	mu          sync.Mutex
	unsubscribe func()

	// gate is held for reading while an event is handled; Unbind takes it
	// for writing, so no handler is running or starts once Unbind returns
	gate   sync.RWMutex
	closed bool

	pending sync.WaitGroup
}

// NewSynchronizer creates an unbound synchronizer
func NewSynchronizer(session *Session, store *Store) *Synchronizer {
	return &Synchronizer{
		session:         session,
		store:           store,
		MarkSeenTimeout: defaultMarkSeenTimeout,
	}
}

// Rebind removes the current listener, if any, and installs a fresh one.
// Removal happens first, so an event is never seen by two listeners.
func (s *Synchronizer) Rebind() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.gate.Lock()
	s.closed = false
	s.gate.Unlock()

	s.unsubscribe = s.session.Events.Subscribe(EventNewMessage, s.onEvent)
}

// Unbind removes the listener and waits for an event being handled to
// finish. Events the transport already had in flight are ignored afterwards.
// Safe to call when not bound; must not be called from inside a store
// observer.
func (s *Synchronizer) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	s.gate.Lock()
	s.closed = true
	s.gate.Unlock()
}

// Bound reports whether a listener is installed
func (s *Synchronizer) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe != nil
}

// Wait blocks until every mark-seen request started so far has finished
func (s *Synchronizer) Wait() {
	s.pending.Wait()
}

func (s *Synchronizer) onEvent(payload []byte) {
	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.closed {
		s.session.Log.Debug().Msg("newMessage after unbind ignored")
		return
	}

	var m *models.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		s.session.Log.Warn().Err(err).Bytes("payload", payload).Msg("invalid newMessage received from socket")
		return
	}
	s.Handle(m)
}

// Handle routes one inbound message:
//   - from the open conversation's user: appended, marked seen locally and on the server
//   - my own echo to the open conversation's user: appended
//   - from anyone else: counted as unseen
//   - my own echo to anyone else: dropped
func (s *Synchronizer) Handle(m *models.Message) Route {
	if m == nil || m.SenderID == "" {
		s.session.Log.Warn().Interface("message", m).Msg("invalid newMessage received from socket")
		return RouteRejected
	}

	selfID := s.session.Self.ID
	route := RouteDropped
	markSeen := false

	s.store.Update(func(tx *Tx) {
		active := tx.Selected()
		fromActive := active != nil && m.SenderID == active.ID
		ownEcho := active != nil && m.SenderID == selfID && m.ReceiverID == active.ID

		switch {
		case fromActive || ownEcho:
			msg := *m
			if fromActive {
				msg.Seen = true
				markSeen = true
			}
			tx.AppendMessage(msg)
			route = RouteVisible
		case m.SenderID != selfID:
			tx.IncrementUnseen(m.SenderID)
			route = RouteUnseen
		}
	})

	if markSeen {
		m.Seen = true
		s.markSeen(m.ID)
	}
	return route
}

// markSeen fires the acknowledgement without holding up the append
func (s *Synchronizer) markSeen(messageID string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.MarkSeenTimeout)
		defer cancel()

		if err := s.session.API.MarkSeen(ctx, messageID); err != nil {
			s.session.Log.Warn().Err(err).Str("message", messageID).Msg("mark seen failed")
		}
	}()
}
