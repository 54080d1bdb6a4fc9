// internal/game/errors.go
//
// Error taxonomy for session operations.
// Every failure returned by the lobby manager wraps exactly one of these
// sentinels, so callers distinguish kinds with errors.Is and the HTTP layer
// can map each kind to a status code. Nothing is logged-and-ignored.

package game

import "errors"

var (
	// ErrInvalidArgument indicates malformed input (non-positive capacity,
	// missing score, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates an unknown session or an unknown/inactive player.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates the operation is not legal for the session's
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrAlreadyJoined indicates the player id is already in the roster.
	ErrAlreadyJoined = errors.New("player already joined")

	// ErrFull indicates the roster is at max capacity.
	ErrFull = errors.New("session is full")

	// ErrConflict indicates the retry budget was exhausted under write
	// contention.
	ErrConflict = errors.New("write conflict")

	// ErrUnavailable indicates a store or directory failure.
	ErrUnavailable = errors.New("dependency unavailable")
)

// Kind returns a stable machine-readable tag for the error's taxonomy kind,
// or "internal" if the error wraps none of the sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrFull):
		return "full"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
