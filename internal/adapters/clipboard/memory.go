// Package clipboard хранит буферы обмена клиентов между запросами.
package clipboard

import (
	"context"
	"sync"

	"remote-file-manager/internal/domain"
)

// MemoryStore буферы обмена в памяти процесса, по одному на клиента.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]domain.ClipboardState
}

var _ domain.ClipboardStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]domain.ClipboardState)}
}

func (m *MemoryStore) Set(_ context.Context, clientID string, state domain.ClipboardState) error {
	items := make([]domain.FileEntry, len(state.Items))
	copy(items, state.Items)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[clientID] = domain.ClipboardState{SourcePath: state.SourcePath, Items: items}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, clientID string) (domain.ClipboardState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[clientID]
	return state, ok, nil
}

func (m *MemoryStore) Clear(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, clientID)
	return nil
}
