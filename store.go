package menu

import (
	"context"
	"sync"
)

// StateStore is the durable backend for persisted menu state. Load returns
// (nil, nil) when no record exists; the engine substitutes the default state
// form. Implementations must be safe for concurrent use.
type StateStore interface {
	Save(ctx context.Context, viewerID, menuID string, state *PersistedState) error
	Load(ctx context.Context, viewerID, menuID string) (*PersistedState, error)
}

// MemoryStore is the default StateStore: process-local, no durability across
// restarts. Use NewSQLiteStore for real persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[stateKey]*PersistedState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[stateKey]*PersistedState)}
}

// Save implements StateStore.
func (m *MemoryStore) Save(_ context.Context, viewerID, menuID string, state *PersistedState) error {
	m.mu.Lock()
	m.states[stateKey{viewer: viewerID, menu: menuID}] = state
	m.mu.Unlock()
	return nil
}

// Load implements StateStore.
func (m *MemoryStore) Load(_ context.Context, viewerID, menuID string) (*PersistedState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states[stateKey{viewer: viewerID, menu: menuID}], nil
}
