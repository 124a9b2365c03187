package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS score_records (
				player_id     TEXT PRIMARY KEY,
				points        BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
				wins          BIGINT NOT NULL DEFAULT 0 CHECK (wins >= 0),
				losses        BIGINT NOT NULL DEFAULT 0 CHECK (losses >= 0),
				kills         BIGINT NOT NULL DEFAULT 0 CHECK (kills >= 0),
				deaths        BIGINT NOT NULL DEFAULT 0 CHECK (deaths >= 0),
				games_played  BIGINT NOT NULL DEFAULT 0 CHECK (games_played >= 0),
				visible       BOOLEAN NOT NULL DEFAULT FALSE,
				rank_position INTEGER,
				last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_score_records_visible ON score_records (visible);
		`)
		if err != nil {
			return fmt.Errorf("create score_records: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS score_records;`)
		return err
	})
}
