package inboxstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Memory keeps notifications per player.
type Memory struct {
	mu       sync.Mutex
	byPlayer map[string][]*model.Notification
	now      func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{byPlayer: make(map[string][]*model.Notification), now: time.Now}
}

// Create implements Store.
func (m *Memory) Create(ctx context.Context, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := n
	m.byPlayer[n.PlayerID] = append(m.byPlayer[n.PlayerID], &cp)
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, playerID string, unreadOnly bool) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.byPlayer[playerID] {
		if n.DeletedAt != nil || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, *n)
	}
	slices.SortStableFunc(out, func(a, b model.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *Memory) find(playerID, id string) *model.Notification {
	for _, n := range m.byPlayer[playerID] {
		if n.ID == id && n.DeletedAt == nil {
			return n
		}
	}
	return nil
}

// MarkRead implements Store.
func (m *Memory) MarkRead(ctx context.Context, playerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(playerID, id)
	if n == nil {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, playerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(playerID, id)
	if n == nil {
		return ErrNotFound
	}
	at := m.now().UTC()
	n.DeletedAt = &at
	return nil
}

// UnreadCount implements Store.
func (m *Memory) UnreadCount(ctx context.Context, playerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.byPlayer[playerID] {
		if n.DeletedAt == nil && !n.Read {
			count++
		}
	}
	return count, nil
}
