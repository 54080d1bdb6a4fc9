// internal/game/roster.go
//
// Roster admission: the capacity/uniqueness check-and-add used by join.
// Kept as a pure function so the lobby manager's retry loop can re-run it
// against fresh snapshots without duplicating the rules or risking partial
// application.

package game

// Admit returns the roster with playerID appended, or an error if the player
// cannot be admitted.
//
// Rules, in order:
//  1. playerID already in roster → ErrAlreadyJoined.
//  2. roster at maxPlayers      → ErrFull.
//  3. otherwise append.
//
// The returned slice is always freshly allocated; the input is never touched.
func Admit(roster []string, maxPlayers int, playerID string) ([]string, error) {
	for _, id := range roster {
		if id == playerID {
			return nil, ErrAlreadyJoined
		}
	}
	if len(roster) >= maxPlayers {
		return nil, ErrFull
	}
	next := make([]string, 0, len(roster)+1)
	next = append(next, roster...)
	next = append(next, playerID)
	return next, nil
}
