package websocket

import "time"

// EventType represents different WebSocket event types
type EventType string

const (
	// EventNewMessage carries a models.Message to its receiver and echoes it to its sender
	EventNewMessage EventType = "newMessage"

	// EventGetOnlineUsers carries the full list of online user ids
	EventGetOnlineUsers EventType = "getOnlineUsers"

	EventError EventType = "error"
)

// WSMessage represents a WebSocket message structure
type WSMessage struct {
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorPayload represents error event payload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IncomingMessage represents messages received from clients
type IncomingMessage struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// NewEvent stamps an outgoing event
func NewEvent(t EventType, payload interface{}) WSMessage {
	return WSMessage{Type: t, Payload: payload, Timestamp: time.Now()}
}
