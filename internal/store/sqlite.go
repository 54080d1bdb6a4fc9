// internal/store/sqlite.go
//
// SQLite implementation of the Store interface.
// Maps session snapshots onto the `sessions` table (see sql/0001_init.sql):
//   - players is stored as a JSON array of ids (insertion order preserved).
//   - score is NULL until the session finishes.
//   - timestamps are RFC3339 strings.
//   - version backs the conditional update: the CAS is a single UPDATE with
//     `WHERE id=? AND version=?`, so two racing writers can never both land.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/gamelobby/go-server/internal/game"
)

// SQLite is a Store backed by a sessions table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite constructs a SQLite-backed Store over an open database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Create inserts a new session row with version 1.
func (s *SQLite) Create(ctx context.Context, sess game.Session) (game.Session, error) {
	players, err := json.Marshal(rosterOrEmpty(sess.Players))
	if err != nil {
		return game.Session{}, fmt.Errorf("marshal players: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO sessions (id, name, max_players, state, players, score, version, created_at, updated_at)
        VALUES (?,?,?,?,?,?,1,?,?)`,
		sess.ID, sess.Name, sess.MaxPlayers, string(sess.State), string(players),
		scoreArg(sess.Score),
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return game.Session{}, ErrExists
		}
		return game.Session{}, fmt.Errorf("insert session: %w", err)
	}
	out := sess.Clone()
	out.Version = 1
	return out, nil
}

// Load retrieves a session row by id.
func (s *SQLite) Load(ctx context.Context, id string) (game.Session, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, max_players, state, players, score, version, created_at, updated_at
        FROM sessions WHERE id=?`, id)
	return scanSession(row)
}

// CompareAndSwap updates the row only if its version still equals expected.
// RowsAffected distinguishes success from a lost race; a follow-up existence
// check separates a stale version from a missing row.
func (s *SQLite) CompareAndSwap(ctx context.Context, id string, expected int64, sess game.Session) (game.Session, error) {
	players, err := json.Marshal(rosterOrEmpty(sess.Players))
	if err != nil {
		return game.Session{}, fmt.Errorf("marshal players: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE sessions
        SET state=?, players=?, score=?, version=version+1, updated_at=?
        WHERE id=? AND version=?`,
		string(sess.State), string(players), scoreArg(sess.Score),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
		id, expected,
	)
	if err != nil {
		return game.Session{}, fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return game.Session{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id=?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return game.Session{}, ErrNotFound
		}
		if err != nil {
			return game.Session{}, fmt.Errorf("check session: %w", err)
		}
		return game.Session{}, ErrVersionConflict
	}
	out := sess.Clone()
	out.ID = id
	out.Version = expected + 1
	return out, nil
}

// scanSession converts a sessions row into a game.Session.
func scanSession(row *sql.Row) (game.Session, error) {
	var (
		out     game.Session
		state   string
		players string
		score   sql.NullInt64
		created string
		updated string
	)
	err := row.Scan(&out.ID, &out.Name, &out.MaxPlayers, &state, &players, &score, &out.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Session{}, ErrNotFound
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("scan session: %w", err)
	}
	out.State = game.State(state)
	if err := json.Unmarshal([]byte(players), &out.Players); err != nil {
		return game.Session{}, fmt.Errorf("unmarshal players: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		out.Score = &v
	}
	out.CreatedAt = parseTime(created)
	out.UpdatedAt = parseTime(updated)
	return out, nil
}

// rosterOrEmpty normalizes a nil roster to an empty slice so it marshals as
// [] instead of null.
func rosterOrEmpty(players []string) []string {
	if players == nil {
		return []string{}
	}
	return players
}

// scoreArg maps the optional score to a NULL-able SQL argument.
func scoreArg(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}

// parseTime parses RFC3339 timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
