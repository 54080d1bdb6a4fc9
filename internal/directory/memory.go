// internal/directory/memory.go
//
// In-memory implementation of the player Registry, used in development and
// tests. Same semantics as the SQLite implementation, minus durability.

package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a map-backed Registry.
type Memory struct {
	mu      sync.RWMutex      // guards players
	players map[string]Player // keyed by Player.ID
}

// NewMemory constructs an empty in-memory Registry.
func NewMemory() *Memory {
	return &Memory{players: make(map[string]Player)}
}

// Add seeds a player record as-is, bypassing validation.
// Intended for tests and dev fixtures (e.g. inactive players).
func (m *Memory) Add(p Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[p.ID] = p
}

// Register creates a new active player.
func (m *Memory) Register(ctx context.Context, displayName, email string) (Player, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateRegistration(displayName, email); err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrInvalidPlayer, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.Email == email {
			return Player{}, ErrEmailTaken
		}
	}
	p := Player{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Email:       email,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	m.players[p.ID] = p
	return p, nil
}

// Resolve returns the player record for id.
func (m *Memory) Resolve(ctx context.Context, id string) (Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	return p, nil
}

// ListActive returns all active players, oldest first.
func (m *Memory) ListActive(ctx context.Context) ([]Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Player{}
	for _, p := range m.players {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
