package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler receives the raw payload of one event
type Handler func(payload []byte)

// ListenerID identifies one registration made with On
type ListenerID uint64

type frame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type listener struct {
	id ListenerID
	fn Handler
}

// Socket is the client end of the server's event stream. Events are
// dispatched on the read goroutine in the order they arrive.
type Socket struct {
	log zerolog.Logger

	mu        sync.Mutex
	nextID    ListenerID
	listeners map[string][]listener

	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

// NewSocket creates an unconnected socket
func NewSocket(log zerolog.Logger) *Socket {
	return &Socket{
		log:       log.With().Str("component", "socket").Logger(),
		listeners: make(map[string][]listener),
	}
}

// SocketURL turns an http(s) server root into the ws(s) event endpoint
func SocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/ws"
	return u.String(), nil
}

// Connect dials the server and starts the read loop
func (s *Socket) Connect(ctx context.Context, serverURL, token string) error {
	addr, err := SocketURL(serverURL)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("token", token)

	conn, _, err := dialer.DialContext(ctx, addr, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	s.writeMu.Lock()
	if s.conn != nil {
		s.writeMu.Unlock()
		conn.Close()
		return errors.New("socket already connected")
	}
	s.conn = conn
	s.done = make(chan struct{})
	done := s.done
	s.writeMu.Unlock()

	go s.readLoop(conn, done)
	return nil
}

// Done is closed when the read loop exits
func (s *Socket) Done() <-chan struct{} {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.done
}

// Close shuts the connection down. Listeners stay registered.
func (s *Socket) Close() error {
	s.writeMu.Lock()
	conn := s.conn
	s.conn = nil
	s.writeMu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

// Emit sends an event frame to the server
func (s *Socket) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(map[string]interface{}{"type": event, "payload": payload})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return errors.New("socket not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn().Err(err).Msg("socket closed")
			}
			return
		}
		s.Dispatch(data)
	}
}

// Dispatch decodes one frame and hands its payload to the listeners
// registered for its event at this moment.
func (s *Socket) Dispatch(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Warn().Err(err).Msg("undecodable frame")
		return
	}

	s.mu.Lock()
	current := append([]listener(nil), s.listeners[f.Type]...)
	s.mu.Unlock()

	for _, l := range current {
		l.fn(f.Payload)
	}
}

// On registers fn for event and returns a handle for Off
func (s *Socket) On(event string, fn Handler) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.listeners[event] = append(s.listeners[event], listener{id: s.nextID, fn: fn})
	return s.nextID
}

// Off removes exactly the registration identified by id
func (s *Socket) Off(id ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for event, ls := range s.listeners {
		for i, l := range ls {
			if l.id != id {
				continue
			}
			ls = append(ls[:i:i], ls[i+1:]...)
			if len(ls) == 0 {
				delete(s.listeners, event)
			} else {
				s.listeners[event] = ls
			}
			return
		}
	}
}

// Listeners reports how many handlers are registered for event
func (s *Socket) Listeners(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[event])
}

// Subscribe registers fn and returns the function that removes it
func (s *Socket) Subscribe(event string, fn func(payload []byte)) func() {
	id := s.On(event, fn)
	var once sync.Once
	return func() { once.Do(func() { s.Off(id) }) }
}
