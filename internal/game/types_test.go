package game

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasPlayer(t *testing.T) {
	s := Session{Players: []string{"a", "b"}}
	if !s.HasPlayer("a") {
		t.Fatal("expected HasPlayer(a) to be true")
	}
	if s.HasPlayer("c") {
		t.Fatal("expected HasPlayer(c) to be false")
	}
}

func TestCloneIsDeep(t *testing.T) {
	score := 7
	s := Session{ID: "s1", Players: []string{"a"}, Score: &score}
	c := s.Clone()

	c.Players[0] = "mutated"
	*c.Score = 99

	if s.Players[0] != "a" {
		t.Fatal("Clone shared the players slice")
	}
	if *s.Score != 7 {
		t.Fatal("Clone shared the score pointer")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidArgument, "invalid_argument"},
		{ErrNotFound, "not_found"},
		{ErrInvalidState, "invalid_state"},
		{ErrAlreadyJoined, "already_joined"},
		{ErrFull, "full"},
		{ErrConflict, "conflict"},
		{ErrUnavailable, "unavailable"},
		{errors.New("boom"), "internal"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
		// Wrapped errors must keep their kind.
		wrapped := fmt.Errorf("context: %w", c.err)
		if got := Kind(wrapped); got != c.want {
			t.Errorf("Kind(wrapped %v) = %q, want %q", c.err, got, c.want)
		}
	}
}
