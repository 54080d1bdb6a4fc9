// internal/directory/directory.go
//
// Player directory: resolves player ids to player identities.
// The lobby manager only needs Resolve (a player is joinable iff Active);
// the wider Registry interface adds the registration/listing operations the
// HTTP layer exposes. Implementations: SQLite (default) and memory (dev/tests).

package directory

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates no player with the requested id.
	ErrNotFound = errors.New("player not found")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidPlayer indicates registration input failed validation.
	ErrInvalidPlayer = errors.New("invalid player")
)

// Player is a player identity record.
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Directory resolves a player id to a player identity.
// This is the only surface the lobby manager depends on.
type Directory interface {
	// Resolve returns the player record for id.
	// Returns ErrNotFound if absent.
	Resolve(ctx context.Context, id string) (Player, error)
}

// Registry is the full player-management surface used by the HTTP layer.
type Registry interface {
	Directory

	// Register creates a new active player.
	// Returns ErrInvalidPlayer on bad input, ErrEmailTaken on a duplicate email.
	Register(ctx context.Context, displayName, email string) (Player, error)

	// ListActive returns all active players.
	ListActive(ctx context.Context) ([]Player, error)
}

// validateRegistration enforces basic display name / email rules.
func validateRegistration(displayName, email string) error {
	if displayName == "" {
		return errors.New("display name is required")
	}
	if len(displayName) > 64 {
		return errors.New("display name must be at most 64 chars")
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return errors.New("email is malformed")
	}
	return nil
}
