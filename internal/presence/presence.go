// Package presence tracks which users currently hold a live socket.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Registry is the online-user-id set
type Registry interface {
	Add(ctx context.Context, userID string) error
	Remove(ctx context.Context, userID string) error
	Members(ctx context.Context) ([]string, error)
}

// Memory is a process-local Registry
type Memory struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]struct{})}
}

func (m *Memory) Add(_ context.Context, userID string) error {
	m.mu.Lock()
	m.ids[userID] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.ids, userID)
	m.mu.Unlock()
	return nil
}

// Members returns the online ids sorted, so broadcasts are stable.
func (m *Memory) Members(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
