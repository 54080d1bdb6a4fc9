// internal/game/types.go
//
// Core type definitions for game sessions.
// Defines:
//   - State: lifecycle state of a session (waiting/in_progress/finished).
//   - Session: plain value snapshot of a single session record.
//
// Session values are snapshots: the lifecycle manager computes new values
// from old ones and writes them back through the store's conditional update.
// Nothing in this package mutates shared state.

package game

import "time"

// State represents the lifecycle state of a session.
// Possible values:
//   - "waiting":     session is open, players may join.
//   - "in_progress": session has started, roster is closed.
//   - "finished":    session has ended; terminal, nothing may change.
type State string

const (
	StateWaiting    State = "waiting"
	StateInProgress State = "in_progress"
	StateFinished   State = "finished"
)

// Session holds one game session record.
//
// Invariants (hold after every successful operation):
//   - 0 <= len(Players) <= MaxPlayers, no duplicate player ids.
//   - Score is non-nil exactly when State is StateFinished.
//   - Once finished, State, Players and Score never change.
type Session struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MaxPlayers int       `json:"maxPlayers"`
	State      State     `json:"state"`
	Players    []string  `json:"players"`
	Score      *int      `json:"score,omitempty"` // set on finish, nil before
	Version    int64     `json:"-"`               // store change token, bumped on every write
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasPlayer reports whether the given player id is in the roster.
func (s Session) HasPlayer(id string) bool {
	for _, p := range s.Players {
		if p == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session.
// Stores hand out clones so callers can never alias the stored roster slice.
func (s Session) Clone() Session {
	out := s
	if s.Players != nil {
		out.Players = append([]string(nil), s.Players...)
	}
	if s.Score != nil {
		v := *s.Score
		out.Score = &v
	}
	return out
}
