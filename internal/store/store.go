// internal/store/store.go
//
// Persistence interface for session records.
// Implementations may be backed by memory (dev/tests) or SQLite (this repo's
// default); the contract is the same either way:
//   - Create persists a new session with Version set to 1.
//   - Load returns a snapshot of the record, including its current Version.
//   - CompareAndSwap writes a new value only if the record's Version still
//     matches the version the caller read, and bumps it by one. A mismatch
//     returns ErrVersionConflict so the caller can re-read and retry.
//
// The conditional update is what makes the lobby manager's read-validate-write
// cycle atomic per session without any session-level lock.

package store

import (
	"context"
	"errors"

	"github.com/gamelobby/go-server/internal/game"
)

var (
	// ErrNotFound indicates no session record with the requested id.
	ErrNotFound = errors.New("session not found")

	// ErrExists indicates Create was called with an id already in use.
	ErrExists = errors.New("session already exists")

	// ErrVersionConflict indicates the record changed since the caller read it.
	ErrVersionConflict = errors.New("session version conflict")
)

// Store defines the persistence interface for session records.
type Store interface {
	// Create persists a new session and returns the stored snapshot with
	// Version set to 1. Returns ErrExists if the id is taken.
	Create(ctx context.Context, s game.Session) (game.Session, error)

	// Load retrieves a session snapshot by id.
	// Returns ErrNotFound if absent.
	Load(ctx context.Context, id string) (game.Session, error)

	// CompareAndSwap replaces the session identified by id with s, but only
	// if the stored Version equals expected. On success the stored Version
	// becomes expected+1 and the new snapshot is returned.
	// Returns ErrVersionConflict on a version mismatch, ErrNotFound if the
	// record does not exist.
	CompareAndSwap(ctx context.Context, id string, expected int64, s game.Session) (game.Session, error)
}
