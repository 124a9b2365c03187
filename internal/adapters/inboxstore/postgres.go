package inboxstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Notification is the bun model for the notifications table.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	PlayerID      string     `bun:"player_id,notnull"`
	Title         string     `bun:"title,notnull"`
	Message       string     `bun:"message,notnull"`
	Type          string     `bun:"type,notnull"`
	Read          bool       `bun:"read,notnull"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	DeletedAt     *time.Time `bun:"deleted_at"`
}

// Postgres stores notifications through bun.
type Postgres struct {
	db  *bun.DB
	now func() time.Time
}

// NewPostgres wraps a migrated pgstore database.
func NewPostgres(db *bun.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// Create implements Store.
func (p *Postgres) Create(ctx context.Context, n model.Notification) error {
	id, err := uuid.Parse(n.ID)
	if err != nil {
		return fmt.Errorf("inboxstore.Create: notification id: %w", err)
	}
	row := &Notification{
		ID: id, PlayerID: n.PlayerID, Title: n.Title, Message: n.Message,
		Type: string(n.Type), Read: n.Read, CreatedAt: n.CreatedAt,
	}
	if _, err := p.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("inboxstore.Create: %w", err)
	}
	return nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context, playerID string, unreadOnly bool) ([]model.Notification, error) {
	var rows []Notification
	q := p.db.NewSelect().Model(&rows).
		Where("player_id = ?", playerID).
		Where("deleted_at IS NULL").
		Order("created_at DESC")
	if unreadOnly {
		q = q.Where("NOT read")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("inboxstore.List: %w", err)
	}
	out := make([]model.Notification, len(rows))
	for i, r := range rows {
		out[i] = model.Notification{
			ID: r.ID.String(), PlayerID: r.PlayerID, Title: r.Title, Message: r.Message,
			Type: model.NotificationType(r.Type), Read: r.Read, CreatedAt: r.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func (p *Postgres) update(ctx context.Context, playerID, id string, set string, args ...any) error {
	nid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := p.db.NewUpdate().Model((*Notification)(nil)).
		Set(set, args...).
		Where("id = ?", nid).
		Where("player_id = ?", playerID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("inboxstore.update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRead implements Store.
func (p *Postgres) MarkRead(ctx context.Context, playerID, id string) error {
	return p.update(ctx, playerID, id, "read = TRUE")
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, playerID, id string) error {
	return p.update(ctx, playerID, id, "deleted_at = ?", p.now().UTC())
}

// UnreadCount implements Store.
func (p *Postgres) UnreadCount(ctx context.Context, playerID string) (int, error) {
	n, err := p.db.NewSelect().Model((*Notification)(nil)).
		Where("player_id = ?", playerID).
		Where("deleted_at IS NULL").
		Where("NOT read").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("inboxstore.UnreadCount: %w", err)
	}
	return n, nil
}
