package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// SQLite reads the profiles table of a migrated sqlitestore database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Lookup implements Directory.
func (s *SQLite) Lookup(ctx context.Context, playerIDs []string) (map[string]model.Profile, error) {
	ids := dedupeIDs(playerIDs)
	out := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, username, avatar_url FROM profiles WHERE player_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.PlayerID, &p.Username, &p.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.PlayerID] = p
	}
	return out, rows.Err()
}

// Put implements Writer.
func (s *SQLite) Put(ctx context.Context, p model.Profile) error {
	if err := validate(p); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (player_id, username, avatar_url) VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET username = excluded.username, avatar_url = excluded.avatar_url`,
		p.PlayerID, p.Username, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("put profile %s: %w", p.PlayerID, err)
	}
	return nil
}
