package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quickchat/internal/presence"

	"github.com/rs/zerolog"
)

const defaultPresenceRefresh = 30 * time.Second

// Hub maintains the set of active clients and routes events to them
type Hub struct {
	// Registered clients mapped by user ID
	Clients map[string]*Client

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// PresenceRefresh is how often connected users are re-added to the
	// registry; it must stay below the registry's expiry
	PresenceRefresh time.Duration

	registry presence.Registry
	log      zerolog.Logger

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(registry presence.Registry, log zerolog.Logger) *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),

		PresenceRefresh: defaultPresenceRefresh,

		registry: registry,
		log:      log.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	refresh := time.NewTicker(h.PresenceRefresh)
	defer refresh.Stop()

	for {
		select {
		case client := <-h.Register:
			h.registerClient(ctx, client)
		case client := <-h.Unregister:
			h.unregisterClient(ctx, client)
		case <-refresh.C:
			h.refreshPresence(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// refreshPresence keeps this instance's users from expiring in a shared registry
func (h *Hub) refreshPresence(ctx context.Context) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.Clients))
	for id := range h.Clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.registry.Add(ctx, id); err != nil {
			h.log.Warn().Err(err).Str("user", id).Msg("failed to refresh presence")
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	// If user already has a connection, close the old one
	if existing, ok := h.Clients[client.ID]; ok && existing != client {
		close(existing.Send)
	}
	h.Clients[client.ID] = client
	h.mu.Unlock()

	if err := h.registry.Add(ctx, client.ID); err != nil {
		h.log.Error().Err(err).Str("user", client.ID).Msg("failed to record presence")
	}

	h.broadcastOnlineUsers(ctx)
	h.log.Info().Str("user", client.ID).Msg("client connected")
}

// unregisterClient removes a client from the hub. A stale client that was
// already replaced by a newer connection for the same user is ignored.
func (h *Hub) unregisterClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	current, ok := h.Clients[client.ID]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.Clients, client.ID)
	close(client.Send)
	h.mu.Unlock()

	if err := h.registry.Remove(ctx, client.ID); err != nil {
		h.log.Error().Err(err).Str("user", client.ID).Msg("failed to clear presence")
	}

	h.broadcastOnlineUsers(ctx)
	h.log.Info().Str("user", client.ID).Msg("client disconnected")
}

func (h *Hub) onlineEvent(ctx context.Context) ([]byte, bool) {
	ids, err := h.registry.Members(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list online users")
		return nil, false
	}

	data, err := json.Marshal(NewEvent(EventGetOnlineUsers, ids))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal online users")
		return nil, false
	}
	return data, true
}

// broadcastOnlineUsers sends the full online-id set to every connected client
func (h *Hub) broadcastOnlineUsers(ctx context.Context) {
	data, ok := h.onlineEvent(ctx)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.Clients {
		h.deliver(id, client, data)
	}
}

func (h *Hub) sendOnlineUsers(client *Client) {
	data, ok := h.onlineEvent(context.Background())
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, ok := h.Clients[client.ID]; ok && current == client {
		h.deliver(client.ID, client, data)
	}
}

// deliver must be called with h.mu held
func (h *Hub) deliver(userID string, client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.log.Warn().Str("user", userID).Msg("send buffer full, dropping event")
	}
}

// EmitToUser sends an event to a specific user if connected
func (h *Hub) EmitToUser(userID string, message WSMessage) {
	h.BroadcastToUsers([]string{userID}, message)
}

// BroadcastToUsers sends an event to multiple users. Duplicate ids receive it once.
func (h *Hub) BroadcastToUsers(userIDs []string, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if sent[userID] {
			continue
		}
		sent[userID] = true
		if client, ok := h.Clients[userID]; ok {
			h.deliver(userID, client, data)
		}
	}
}

// IsUserOnline checks if a user is connected to this hub
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.Clients[userID]
	return ok
}

// GetOnlineUsers returns the online-id set from the presence registry
func (h *Hub) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return h.registry.Members(ctx)
}

// GetOnlineCount returns the number of clients connected to this hub
func (h *Hub) GetOnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.Clients)
}
