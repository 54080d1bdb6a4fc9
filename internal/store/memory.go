// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is a lightweight persistence layer used in development and tests.
//
// Characteristics:
//   - Stores session values keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Hands out clones, never pointers into the map.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"

	"github.com/gamelobby/go-server/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex            // guards sessions map
	sessions map[string]game.Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]game.Session)}
}

// Create inserts a new session with Version 1.
func (m *memory) Create(ctx context.Context, s game.Session) (game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return game.Session{}, ErrExists
	}
	s = s.Clone()
	s.Version = 1
	m.sessions[s.ID] = s
	return s.Clone(), nil
}

// Load looks up a session by ID and returns a clone of it.
func (m *memory) Load(ctx context.Context, id string) (game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return game.Session{}, ErrNotFound
	}
	return s.Clone(), nil
}

// CompareAndSwap replaces the stored session only if its version still equals
// expected, bumping the version by one.
func (m *memory) CompareAndSwap(ctx context.Context, id string, expected int64, s game.Session) (game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[id]
	if !ok {
		return game.Session{}, ErrNotFound
	}
	if cur.Version != expected {
		return game.Session{}, ErrVersionConflict
	}
	s = s.Clone()
	s.ID = id
	s.Version = expected + 1
	m.sessions[id] = s
	return s.Clone(), nil
}
