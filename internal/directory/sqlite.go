// internal/directory/sqlite.go
//
// SQLite implementation of the player Registry over the `players` table.
// Duplicate emails are enforced by the UNIQUE(email) constraint and surfaced
// as ErrEmailTaken rather than a bare driver error.

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SQLite is a Registry backed by the players table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite constructs a SQLite-backed Registry over an open database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Register validates input and inserts a new active player row.
func (d *SQLite) Register(ctx context.Context, displayName, email string) (Player, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateRegistration(displayName, email); err != nil {
		return Player{}, fmt.Errorf("%w: %v", ErrInvalidPlayer, err)
	}

	p := Player{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Email:       email,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := d.db.ExecContext(ctx, `
        INSERT INTO players (id, display_name, email, active, created_at)
        VALUES (?,?,?,1,?)`,
		p.ID, p.DisplayName, p.Email, p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Player{}, ErrEmailTaken
		}
		return Player{}, fmt.Errorf("insert player: %w", err)
	}
	return p, nil
}

// Resolve loads a player row by id.
func (d *SQLite) Resolve(ctx context.Context, id string) (Player, error) {
	row := d.db.QueryRowContext(ctx, `
        SELECT id, display_name, email, active, created_at
        FROM players WHERE id=?`, id)
	return scanPlayer(row.Scan)
}

// ListActive returns all active players, oldest first.
func (d *SQLite) ListActive(ctx context.Context) ([]Player, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT id, display_name, email, active, created_at
        FROM players WHERE active=1 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	out := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate marks a player inactive; inactive players cannot join sessions.
func (d *SQLite) Deactivate(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE players SET active=0 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("deactivate player: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanPlayer converts a players row into a Player.
func scanPlayer(scan func(dest ...any) error) (Player, error) {
	var (
		p       Player
		active  int
		created string
	)
	err := scan(&p.ID, &p.DisplayName, &p.Email, &active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("scan player: %w", err)
	}
	p.Active = active != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return p, nil
}
