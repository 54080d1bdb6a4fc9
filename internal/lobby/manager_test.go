package lobby

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/gamelobby/go-server/internal/directory"
	"github.com/gamelobby/go-server/internal/game"
	"github.com/gamelobby/go-server/internal/store"
)

// newTestDirectory seeds a memory directory with a few active players and one
// inactive player.
func newTestDirectory() *directory.Memory {
	dir := directory.NewMemory()
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		dir.Add(directory.Player{ID: id, DisplayName: "Player " + id, Active: true})
	}
	dir.Add(directory.Player{ID: "ghost", DisplayName: "Ghost", Active: false})
	return dir
}

// countingStore wraps a Store and counts write calls.
type countingStore struct {
	store.Store
	mu      sync.Mutex
	creates int
	swaps   int
}

func (c *countingStore) Create(ctx context.Context, s game.Session) (game.Session, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	return c.Store.Create(ctx, s)
}

func (c *countingStore) CompareAndSwap(ctx context.Context, id string, expected int64, s game.Session) (game.Session, error) {
	c.mu.Lock()
	c.swaps++
	c.mu.Unlock()
	return c.Store.CompareAndSwap(ctx, id, expected, s)
}

// conflictStore fails every conditional write with a version conflict.
type conflictStore struct {
	store.Store
}

func (c *conflictStore) CompareAndSwap(ctx context.Context, id string, expected int64, s game.Session) (game.Session, error) {
	return game.Session{}, store.ErrVersionConflict
}

func TestCreate(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())

	s, err := mgr.Create(context.Background(), "  Quiz  ", 4, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if s.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if s.Name != "Quiz" {
		t.Fatalf("expected trimmed name Quiz, got %q", s.Name)
	}
	if s.State != game.StateWaiting {
		t.Fatalf("expected waiting state, got %s", s.State)
	}
	if len(s.Players) != 0 {
		t.Fatalf("expected empty roster, got %v", s.Players)
	}
	if s.Score != nil {
		t.Fatal("expected no score on a fresh session")
	}
}

func TestCreateSeedsCreator(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())

	s, err := mgr.Create(context.Background(), "Quiz", 4, "p1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(s.Players) != 1 || s.Players[0] != "p1" {
		t.Fatalf("expected roster [p1], got %v", s.Players)
	}
}

func TestCreateInvalidCapacity(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())

	for _, n := range []int{0, -1} {
		_, err := mgr.Create(context.Background(), "Quiz", n, "")
		if !errors.Is(err, game.ErrInvalidArgument) {
			t.Fatalf("maxPlayers=%d: expected ErrInvalidArgument, got %v", n, err)
		}
	}
}

// A create with an unresolvable creator is all-or-nothing: no session row.
func TestCreateUnknownCreatorWritesNothing(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	mgr := New(cs, newTestDirectory())

	for _, id := range []string{"nobody", "ghost"} {
		_, err := mgr.Create(context.Background(), "Quiz", 4, id)
		if !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("creator %q: expected ErrNotFound, got %v", id, err)
		}
	}
	if cs.creates != 0 {
		t.Fatalf("expected no store writes, got %d creates", cs.creates)
	}
}

func TestGetUnknownSession(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())

	_, err := mgr.Get(context.Background(), "missing")
	if !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJoin(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(context.Background(), "Quiz", 4, "")

	got, err := mgr.Join(context.Background(), s.ID, "p1")
	if err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if len(got.Players) != 1 || got.Players[0] != "p1" {
		t.Fatalf("expected roster [p1], got %v", got.Players)
	}

	// Round-trip: Get reflects exactly that mutation.
	loaded, err := mgr.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(loaded.Players) != 1 || loaded.Players[0] != "p1" {
		t.Fatalf("Get did not reflect the join: %v", loaded.Players)
	}
}

func TestJoinIdempotentRejection(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(context.Background(), "Quiz", 4, "")

	if _, err := mgr.Join(context.Background(), s.ID, "p1"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	_, err := mgr.Join(context.Background(), s.ID, "p1")
	if !errors.Is(err, game.ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	got, _ := mgr.Get(context.Background(), s.ID)
	if len(got.Players) != 1 {
		t.Fatalf("roster changed on rejected join: %v", got.Players)
	}
}

func TestJoinFull(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(context.Background(), "Duel", 2, "")

	for _, id := range []string{"p1", "p2"} {
		if _, err := mgr.Join(context.Background(), s.ID, id); err != nil {
			t.Fatalf("join %s failed: %v", id, err)
		}
	}
	_, err := mgr.Join(context.Background(), s.ID, "p3")
	if !errors.Is(err, game.ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestJoinUnknownOrInactivePlayer(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	mgr := New(cs, newTestDirectory())
	s, _ := mgr.Create(context.Background(), "Quiz", 4, "")
	writes := cs.swaps

	for _, id := range []string{"nobody", "ghost"} {
		_, err := mgr.Join(context.Background(), s.ID, id)
		if !errors.Is(err, game.ErrNotFound) {
			t.Fatalf("player %q: expected ErrNotFound, got %v", id, err)
		}
	}
	if cs.swaps != writes {
		t.Fatal("rejected joins must not write to the store")
	}
}

func TestJoinUnknownSession(t *testing.T) {
	cs := &countingStore{Store: store.NewMemoryStore()}
	mgr := New(cs, newTestDirectory())

	_, err := mgr.Join(context.Background(), "missing", "p1")
	if !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if cs.swaps != 0 {
		t.Fatal("join on unknown session must not write to the store")
	}
}

func TestStart(t *testing.T) {
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(context.Background(), "Quiz", 4, "p1")

	got, err := mgr.Start(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if got.State != game.StateInProgress {
		t.Fatalf("expected in_progress, got %s", got.State)
	}

	_, err = mgr.Start(context.Background(), s.ID)
	if !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("second start: expected ErrInvalidState, got %v", err)
	}
}

func TestStartEmptyRosterPolicy(t *testing.T) {
	ctx := context.Background()

	strict := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := strict.Create(ctx, "Quiz", 4, "")
	if _, err := strict.Start(ctx, s.ID); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for empty roster, got %v", err)
	}

	lax := New(store.NewMemoryStore(), newTestDirectory(), WithAllowEmptyStart(true))
	s, _ = lax.Create(ctx, "Quiz", 4, "")
	if _, err := lax.Start(ctx, s.ID); err != nil {
		t.Fatalf("expected empty start to succeed under the lax policy, got %v", err)
	}
}

func TestEnd(t *testing.T) {
	ctx := context.Background()
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(ctx, "Quiz", 4, "p1")
	if _, err := mgr.Start(ctx, s.ID); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	score := 42
	got, err := mgr.End(ctx, s.ID, &score)
	if err != nil {
		t.Fatalf("End returned error: %v", err)
	}
	if got.State != game.StateFinished {
		t.Fatalf("expected finished, got %s", got.State)
	}
	if got.Score == nil || *got.Score != 42 {
		t.Fatalf("expected score 42, got %v", got.Score)
	}

	// Finished is terminal.
	if _, err := mgr.Join(ctx, s.ID, "p2"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("join after finish: expected ErrInvalidState, got %v", err)
	}
	if _, err := mgr.Start(ctx, s.ID); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("start after finish: expected ErrInvalidState, got %v", err)
	}
	if _, err := mgr.End(ctx, s.ID, &score); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("end after finish: expected ErrInvalidState, got %v", err)
	}

	// Score is permanent.
	loaded, _ := mgr.Get(ctx, s.ID)
	if loaded.Score == nil || *loaded.Score != 42 {
		t.Fatalf("score did not persist: %v", loaded.Score)
	}
}

func TestEndRequiresScore(t *testing.T) {
	ctx := context.Background()
	cs := &countingStore{Store: store.NewMemoryStore()}
	mgr := New(cs, newTestDirectory())
	s, _ := mgr.Create(ctx, "Quiz", 4, "p1")
	if _, err := mgr.Start(ctx, s.ID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	writes := cs.swaps

	_, err := mgr.End(ctx, s.ID, nil)
	if !errors.Is(err, game.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if cs.swaps != writes {
		t.Fatal("rejected end must not write to the store")
	}
}

func TestEndBeforeStart(t *testing.T) {
	ctx := context.Background()
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(ctx, "Quiz", 4, "p1")

	score := 1
	_, err := mgr.End(ctx, s.ID, &score)
	if !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

// Full lifecycle: create → join ×2 → start → join rejected → end → terminal.
func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	mgr := New(store.NewMemoryStore(), newTestDirectory())

	s, err := mgr.Create(ctx, "Quiz", 4, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if s.State != game.StateWaiting {
		t.Fatalf("expected waiting, got %s", s.State)
	}

	for _, id := range []string{"p1", "p2"} {
		if _, err := mgr.Join(ctx, s.ID, id); err != nil {
			t.Fatalf("join %s failed: %v", id, err)
		}
	}

	if s, err = mgr.Start(ctx, s.ID); err != nil || s.State != game.StateInProgress {
		t.Fatalf("start: state=%s err=%v", s.State, err)
	}

	if _, err := mgr.Join(ctx, s.ID, "p3"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("join in progress: expected ErrInvalidState, got %v", err)
	}

	score := 42
	if s, err = mgr.End(ctx, s.ID, &score); err != nil || s.State != game.StateFinished || *s.Score != 42 {
		t.Fatalf("end: state=%s score=%v err=%v", s.State, s.Score, err)
	}
}

// Three concurrent joiners against a two-seat session: exactly two succeed,
// one fails with ErrFull, and the final roster holds exactly two players.
func TestConcurrentJoinCapacity(t *testing.T) {
	ctx := context.Background()
	mgr := New(store.NewMemoryStore(), newTestDirectory())
	s, _ := mgr.Create(ctx, "Duel", 2, "")

	players := []string{"p1", "p2", "p3"}
	errs := make([]error, len(players))

	var wg sync.WaitGroup
	for i, id := range players {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = mgr.Join(ctx, s.ID, id)
		}(i, id)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, game.ErrFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if ok != 2 || full != 1 {
		t.Fatalf("expected 2 successes and 1 full, got %d/%d", ok, full)
	}

	got, _ := mgr.Get(ctx, s.ID)
	if len(got.Players) != 2 {
		t.Fatalf("expected final roster of 2, got %v", got.Players)
	}
}

// A join that loses the conditional write to a concurrent start must retry
// and then fail the state guard, not sneak into a started session.
func TestJoinRetriesAfterStart(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	dir := newTestDirectory()
	mgr := New(mem, dir)
	s, _ := mgr.Create(ctx, "Quiz", 4, "p1")

	race := &raceStartStore{Store: mem, mgr: nil, sessionID: s.ID}
	racing := New(race, dir)
	race.mgr = New(mem, dir) // starts go straight to the shared memory store

	_, err := racing.Join(ctx, s.ID, "p2")
	if !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after losing to start, got %v", err)
	}

	got, _ := mgr.Get(ctx, s.ID)
	if got.State != game.StateInProgress || len(got.Players) != 1 {
		t.Fatalf("session corrupted by losing join: state=%s players=%v", got.State, got.Players)
	}
}

// raceStartStore makes a concurrent Start land just before the caller's first
// conditional write, forcing a version conflict on that write.
type raceStartStore struct {
	store.Store
	mgr       *Manager
	sessionID string
	once      sync.Once
}

func (r *raceStartStore) CompareAndSwap(ctx context.Context, id string, expected int64, s game.Session) (game.Session, error) {
	r.once.Do(func() {
		if _, err := r.mgr.Start(ctx, r.sessionID); err != nil {
			panic("racing start failed: " + err.Error())
		}
	})
	return r.Store.CompareAndSwap(ctx, id, expected, s)
}

func TestConflictBudgetExhausted(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	mgr := New(mem, newTestDirectory())
	s, _ := mgr.Create(ctx, "Quiz", 4, "")

	contended := New(&conflictStore{Store: mem}, newTestDirectory())
	_, err := contended.Join(ctx, s.ID, "p1")
	if !errors.Is(err, game.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

// Invariants hold after every operation of a randomized sequence:
// roster within capacity, no duplicate ids, finished implies score.
func TestInvariantsUnderRandomizedOps(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	players := []string{"p1", "p2", "p3", "p4", "ghost", "nobody"}

	for round := 0; round < 20; round++ {
		mgr := New(store.NewMemoryStore(), newTestDirectory())
		s, err := mgr.Create(ctx, "Fuzz", 1+rng.Intn(3), "")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		for op := 0; op < 30; op++ {
			switch rng.Intn(4) {
			case 0:
				_, _ = mgr.Join(ctx, s.ID, players[rng.Intn(len(players))])
			case 1:
				_, _ = mgr.Start(ctx, s.ID)
			case 2:
				score := rng.Intn(100)
				_, _ = mgr.End(ctx, s.ID, &score)
			case 3:
				_, _ = mgr.Get(ctx, s.ID)
			}

			cur, err := mgr.Get(ctx, s.ID)
			if err != nil {
				t.Fatalf("get failed mid-sequence: %v", err)
			}
			if len(cur.Players) > cur.MaxPlayers {
				t.Fatalf("roster %v exceeds capacity %d", cur.Players, cur.MaxPlayers)
			}
			seen := map[string]bool{}
			for _, id := range cur.Players {
				if seen[id] {
					t.Fatalf("duplicate player %s in roster %v", id, cur.Players)
				}
				seen[id] = true
			}
			if (cur.State == game.StateFinished) != (cur.Score != nil) {
				t.Fatalf("score/state mismatch: state=%s score=%v", cur.State, cur.Score)
			}
		}
	}
}
