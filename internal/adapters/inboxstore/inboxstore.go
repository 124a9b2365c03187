// Package inboxstore persists player notifications. Deletes are soft.
package inboxstore

import (
	"context"
	"errors"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// ErrNotFound is returned when a notification does not exist, is deleted, or
// belongs to another player.
var ErrNotFound = errors.New("notification not found")

// Store is the notification persistence contract.
type Store interface {
	Create(ctx context.Context, n model.Notification) error
	// List returns the player's live notifications, newest first.
	List(ctx context.Context, playerID string, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, playerID, id string) error
	Delete(ctx context.Context, playerID, id string) error
	UnreadCount(ctx context.Context, playerID string) (int, error)
}
