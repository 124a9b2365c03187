package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS notifications (
					id         UUID PRIMARY KEY,
					player_id  TEXT NOT NULL,
					title      TEXT NOT NULL,
					message    TEXT NOT NULL,
					type       TEXT NOT NULL DEFAULT 'info',
					read       BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMPTZ
				);
			`)
			if err != nil {
				return fmt.Errorf("create notifications: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_notifications_player
				ON notifications (player_id, created_at DESC)
				WHERE deleted_at IS NULL;
			`)
			return err
		})
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS notifications;`)
		return err
	})
}
