// Package impl_inmem is an ephemeral, in-process checkpoint.Manager for
// development and testing.
package impl_inmem

import (
	"context"
	"sync"

	"github.com/feedspine/feedspine/internal/checkpoint"
	"github.com/feedspine/feedspine/internal/model"
)

// Manager stores checkpoints in a guarded map. State is lost on
// process exit.
type Manager struct {
	mu    sync.RWMutex
	byKey map[string]model.Checkpoint
}

// New creates an empty in-memory checkpoint manager.
func New() *Manager {
	return &Manager{byKey: make(map[string]model.Checkpoint)}
}

func (m *Manager) Save(ctx context.Context, cp model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey[cp.FeedName] = cp
	return nil
}

func (m *Manager) Load(ctx context.Context, feedName string) (model.Checkpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.byKey[feedName]
	return cp, ok, nil
}

func (m *Manager) Delete(ctx context.Context, feedName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, feedName)
	return nil
}

var _ checkpoint.Manager = (*Manager)(nil)
