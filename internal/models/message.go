package models

import "time"

// Message represents a direct message between two users.
// Exactly one of Text or Image is populated.
type Message struct {
	ID         string    `json:"_id" db:"id"`
	SenderID   string    `json:"senderId" db:"sender_id"`
	ReceiverID string    `json:"receiverId" db:"receiver_id"`
	Text       string    `json:"text,omitempty" db:"text"`
	Image      string    `json:"image,omitempty" db:"image"`
	Seen       bool      `json:"seen" db:"seen"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// SendMessageRequest is the body of POST /api/messages/send/:userId
type SendMessageRequest struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// UsersResponse is returned by GET /api/messages/users
type UsersResponse struct {
	Success        bool           `json:"success"`
	Users          []UserResponse `json:"users"`
	UnseenMessages map[string]int `json:"unseenMessages"`
	Message        string         `json:"message,omitempty"`
}

// MessagesResponse is returned by GET /api/messages/:userId
type MessagesResponse struct {
	Success  bool      `json:"success"`
	Messages []Message `json:"messages"`
	Message  string    `json:"message,omitempty"`
}

// SendMessageResponse is returned by POST /api/messages/send/:userId
type SendMessageResponse struct {
	Success    bool     `json:"success"`
	NewMessage *Message `json:"newMessage,omitempty"`
	Message    string   `json:"message,omitempty"`
}
