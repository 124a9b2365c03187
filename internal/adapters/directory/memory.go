package directory

import (
	"context"
	"sync"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Memory keeps profiles in a map.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]model.Profile)}
}

// Lookup implements Directory.
func (m *Memory) Lookup(ctx context.Context, playerIDs []string) (map[string]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]model.Profile, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Put implements Writer.
func (m *Memory) Put(ctx context.Context, p model.Profile) error {
	if err := validate(p); err != nil {
		return err
	}
	m.mu.Lock()
	m.profiles[p.PlayerID] = p
	m.mu.Unlock()
	return nil
}
