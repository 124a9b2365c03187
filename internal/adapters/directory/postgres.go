package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Postgres reads the profiles table through its own pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool on dsn. The profiles table is created by the
// pgstore migrations.
func NewPostgres(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory DB config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory DB pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping directory DB: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Lookup implements Directory with a single ANY($1) query.
func (p *Postgres) Lookup(ctx context.Context, playerIDs []string) (map[string]model.Profile, error) {
	ids := dedupeIDs(playerIDs)
	out := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT player_id, username, avatar_url FROM profiles WHERE player_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var prof model.Profile
		if err := rows.Scan(&prof.PlayerID, &prof.Username, &prof.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out[prof.PlayerID] = prof
	}
	return out, rows.Err()
}

// Put implements Writer.
func (p *Postgres) Put(ctx context.Context, prof model.Profile) error {
	if err := validate(prof); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO profiles (player_id, username, avatar_url) VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE SET username = EXCLUDED.username, avatar_url = EXCLUDED.avatar_url`,
		prof.PlayerID, prof.Username, prof.AvatarURL)
	if err != nil {
		return fmt.Errorf("failed to put profile %s: %w", prof.PlayerID, err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
