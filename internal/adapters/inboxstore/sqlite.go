package inboxstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// SQLite uses the notifications table of a migrated sqlitestore database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite wraps db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db, now: time.Now}
}

// Create implements Store.
func (s *SQLite) Create(ctx context.Context, n model.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, player_id, title, message, type, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.PlayerID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, playerID string, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT id, player_id, title, message, type, read, created_at FROM notifications
		WHERE player_id = ? AND deleted_at IS NULL`
	if unreadOnly {
		q += ` AND read = 0`
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, q, playerID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n       model.Notification
			typ     string
			created int64
		)
		if err := rows.Scan(&n.ID, &n.PlayerID, &n.Title, &n.Message, &typ, &n.Read, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = model.NotificationType(typ)
		n.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) update(ctx context.Context, set, playerID, id string, args ...any) error {
	args = append(args, id, playerID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET `+set+` WHERE id = ? AND player_id = ? AND deleted_at IS NULL`, args...)
	if err != nil {
		return fmt.Errorf("update notification %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead implements Store.
func (s *SQLite) MarkRead(ctx context.Context, playerID, id string) error {
	return s.update(ctx, `read = 1`, playerID, id)
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, playerID, id string) error {
	return s.update(ctx, `deleted_at = ?`, playerID, id, s.now().UnixNano())
}

// UnreadCount implements Store.
func (s *SQLite) UnreadCount(ctx context.Context, playerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE player_id = ? AND read = 0 AND deleted_at IS NULL`,
		playerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
