package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quickchat/internal/models"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and when no database is configured
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	emails   map[string]string // lowercased email -> user id
	messages []models.Message
	now      func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]models.User),
		emails: make(map[string]string),
		now:    time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := m.emails[key]; ok {
		return ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := m.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	m.users[user.ID] = *user
	m.emails[key] = user.ID
	return nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Memory) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.ProfilePic != nil {
		u.ProfilePic = *update.ProfilePic
	}
	u.UpdatedAt = m.now().UTC()
	m.users[id] = u
	return &u, nil
}

func (m *Memory) ListUsersExcept(_ context.Context, id string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for uid, u := range m.users {
		if uid != id {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (m *Memory) UnseenCounts(_ context.Context, receiverID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := map[string]int{}
	for _, msg := range m.messages {
		if msg.ReceiverID == receiverID && !msg.Seen {
			counts[msg.SenderID]++
		}
	}
	return counts, nil
}

func (m *Memory) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = m.now().UTC()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *Memory) Conversation(_ context.Context, a, b string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Message{}
	for _, msg := range m.messages {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) MarkConversationSeen(_ context.Context, senderID, receiverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.messages {
		if m.messages[i].SenderID == senderID && m.messages[i].ReceiverID == receiverID {
			m.messages[i].Seen = true
		}
	}
	return nil
}

func (m *Memory) MarkSeen(_ context.Context, messageID, receiverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.messages {
		if m.messages[i].ID != messageID {
			continue
		}
		if m.messages[i].ReceiverID != receiverID {
			return ErrForbidden
		}
		m.messages[i].Seen = true
		return nil
	}
	return ErrNotFound
}
