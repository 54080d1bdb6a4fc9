// internal/lobby/manager.go
//
// Session lifecycle manager: the only component that mutates a session's
// state, roster or score. Owns the state machine
//
//	waiting --start--> in_progress --end--> finished (terminal)
//
// and the roster invariants (no duplicates, never above MaxPlayers).
//
// Every mutating operation runs as: load snapshot → validate guard → compute
// new value → conditional write → on version conflict, re-read and redo the
// whole cycle. That makes each operation atomic with respect to the session's
// version without any session-level lock, so unrelated sessions never contend
// with each other. Retries are bounded; exhaustion surfaces game.ErrConflict.

package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gamelobby/go-server/internal/directory"
	"github.com/gamelobby/go-server/internal/game"
	"github.com/gamelobby/go-server/internal/store"
)

// maxWriteAttempts bounds the internal conflict-retry loop so pathological
// contention cannot spin forever.
const maxWriteAttempts = 5

// Manager coordinates session lifecycle operations against a Store and a
// player Directory. Safe for concurrent use.
type Manager struct {
	store     store.Store
	directory directory.Directory

	allowEmptyStart bool
	now             func() time.Time
	newID           func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithAllowEmptyStart permits starting a session with an empty roster.
// By default a session must have at least one player to start.
func WithAllowEmptyStart(allow bool) Option {
	return func(m *Manager) { m.allowEmptyStart = allow }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides session id generation (tests).
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// New constructs a Manager with explicit collaborators.
func New(st store.Store, dir directory.Directory, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		directory: dir,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create makes a new session in the waiting state.
// If creatorID is non-empty the creator is resolved through the directory and
// seeded into the roster; resolution failure means no session is created.
func (m *Manager) Create(ctx context.Context, name string, maxPlayers int, creatorID string) (game.Session, error) {
	if maxPlayers <= 0 {
		return game.Session{}, fmt.Errorf("%w: max players must be positive, got %d", game.ErrInvalidArgument, maxPlayers)
	}

	players := []string{}
	if creatorID != "" {
		p, err := m.resolvePlayer(ctx, creatorID)
		if err != nil {
			return game.Session{}, err
		}
		players = append(players, p.ID)
	}

	now := m.now().UTC()
	s := game.Session{
		ID:         m.newID(),
		Name:       strings.TrimSpace(name),
		MaxPlayers: maxPlayers,
		State:      game.StateWaiting,
		Players:    players,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := m.store.Create(ctx, s)
	if err != nil {
		return game.Session{}, fmt.Errorf("%w: create session: %v", game.ErrUnavailable, err)
	}
	return created, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(ctx context.Context, id string) (game.Session, error) {
	return m.load(ctx, id)
}

// Join admits a player into a waiting session's roster.
// Fails with game.ErrNotFound (unknown session, unknown or inactive player),
// game.ErrInvalidState (session not waiting), game.ErrAlreadyJoined or
// game.ErrFull. On success the roster has gained exactly one member.
func (m *Manager) Join(ctx context.Context, id, playerID string) (game.Session, error) {
	p, err := m.resolvePlayer(ctx, playerID)
	if err != nil {
		return game.Session{}, err
	}
	return m.update(ctx, id, func(cur game.Session) (game.Session, error) {
		if cur.State != game.StateWaiting {
			return game.Session{}, fmt.Errorf("%w: cannot join a %s session", game.ErrInvalidState, cur.State)
		}
		roster, err := game.Admit(cur.Players, cur.MaxPlayers, p.ID)
		if err != nil {
			return game.Session{}, err
		}
		cur.Players = roster
		return cur, nil
	})
}

// Start transitions a waiting session to in_progress.
func (m *Manager) Start(ctx context.Context, id string) (game.Session, error) {
	return m.update(ctx, id, func(cur game.Session) (game.Session, error) {
		if cur.State != game.StateWaiting {
			return game.Session{}, fmt.Errorf("%w: cannot start a %s session", game.ErrInvalidState, cur.State)
		}
		if len(cur.Players) == 0 && !m.allowEmptyStart {
			return game.Session{}, fmt.Errorf("%w: cannot start with an empty roster", game.ErrInvalidState)
		}
		cur.State = game.StateInProgress
		return cur, nil
	})
}

// End transitions an in_progress session to finished, recording the score.
// The roster is frozen from here on; finished is terminal.
func (m *Manager) End(ctx context.Context, id string, score *int) (game.Session, error) {
	if score == nil {
		return game.Session{}, fmt.Errorf("%w: score is required to end a session", game.ErrInvalidArgument)
	}
	return m.update(ctx, id, func(cur game.Session) (game.Session, error) {
		if cur.State != game.StateInProgress {
			return game.Session{}, fmt.Errorf("%w: cannot end a %s session", game.ErrInvalidState, cur.State)
		}
		v := *score
		cur.State = game.StateFinished
		cur.Score = &v
		return cur, nil
	})
}

// update runs the read-validate-write cycle for a mutating operation,
// retrying on version conflicts. apply must be side-effect-free: it is called
// once per attempt against a fresh snapshot.
func (m *Manager) update(ctx context.Context, id string, apply func(game.Session) (game.Session, error)) (game.Session, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cur, err := m.load(ctx, id)
		if err != nil {
			return game.Session{}, err
		}
		next, err := apply(cur)
		if err != nil {
			return game.Session{}, err
		}
		next.UpdatedAt = m.now().UTC()

		swapped, err := m.store.CompareAndSwap(ctx, id, cur.Version, next)
		switch {
		case err == nil:
			return swapped, nil
		case errors.Is(err, store.ErrVersionConflict):
			// Another writer landed first; re-read and re-evaluate the guard.
			continue
		case errors.Is(err, store.ErrNotFound):
			return game.Session{}, fmt.Errorf("%w: session %s", game.ErrNotFound, id)
		default:
			return game.Session{}, fmt.Errorf("%w: write session: %v", game.ErrUnavailable, err)
		}
	}
	return game.Session{}, fmt.Errorf("%w: session %s kept changing under us", game.ErrConflict, id)
}

// load fetches a session snapshot, mapping store errors into the taxonomy.
func (m *Manager) load(ctx context.Context, id string) (game.Session, error) {
	s, err := m.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return game.Session{}, fmt.Errorf("%w: session %s", game.ErrNotFound, id)
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("%w: load session: %v", game.ErrUnavailable, err)
	}
	return s, nil
}

// resolvePlayer looks up a player and rejects unknown or inactive ones.
func (m *Manager) resolvePlayer(ctx context.Context, id string) (directory.Player, error) {
	p, err := m.directory.Resolve(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return directory.Player{}, fmt.Errorf("%w: player %s", game.ErrNotFound, id)
	}
	if err != nil {
		return directory.Player{}, fmt.Errorf("%w: resolve player: %v", game.ErrUnavailable, err)
	}
	if !p.Active {
		return directory.Player{}, fmt.Errorf("%w: player %s is inactive", game.ErrNotFound, id)
	}
	return p, nil
}
