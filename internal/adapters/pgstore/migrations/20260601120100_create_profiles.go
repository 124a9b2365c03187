package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS profiles (
				player_id  TEXT PRIMARY KEY,
				username   TEXT NOT NULL,
				avatar_url TEXT NOT NULL DEFAULT ''
			);
		`)
		if err != nil {
			return fmt.Errorf("create profiles: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS profiles;`)
		return err
	})
}
