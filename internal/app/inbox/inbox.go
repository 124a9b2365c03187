// Package inbox manages per-player notifications and invalidates the
// player's inbox topic on every change.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/s3m-esports/standings/internal/adapters/inboxstore"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const maxTitle = 200

var (
	// ErrNotFound is returned for unknown, deleted or foreign notifications.
	ErrNotFound = inboxstore.ErrNotFound
	// ErrUnauthorized is returned when a non-admin sends a notification.
	ErrUnauthorized = errors.New("only admins can send notifications")
	// ErrInvalidNotification is returned for empty or oversized content.
	ErrInvalidNotification = errors.New("invalid notification")
)

// Publisher is the part of the change feed the service needs.
type Publisher interface {
	Publish(ctx context.Context, e model.ChangeEvent) error
}

// Service is the notification inbox.
type Service struct {
	store inboxstore.Store
	feed  Publisher
	now   func() time.Time
	log   logger.Logger
}

// New creates an inbox service.
func New(store inboxstore.Store, feed Publisher, opts ...Option) *Service {
	s := &Service{
		store: store,
		feed:  feed,
		now:   time.Now,
		log:   logger.Named("inbox"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers a notification to playerID.
func (s *Service) Send(ctx context.Context, actor model.Actor, playerID, title, message string, typ model.NotificationType) (model.Notification, error) {
	if !actor.IsAdmin() {
		return model.Notification{}, ErrUnauthorized
	}
	title = strings.TrimSpace(title)
	switch {
	case !model.ValidPlayerID(playerID):
		return model.Notification{}, fmt.Errorf("%w: player id", ErrInvalidNotification)
	case title == "" || len(title) > maxTitle:
		return model.Notification{}, fmt.Errorf("%w: title", ErrInvalidNotification)
	}
	if typ == "" {
		typ = model.NotificationInfo
	}
	if !typ.Valid() {
		return model.Notification{}, fmt.Errorf("%w: type %q", ErrInvalidNotification, typ)
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	metrics.RecordNotification("send")
	s.changed(ctx, playerID)
	return n, nil
}

// List returns the player's inbox, newest first, with the unread count.
func (s *Service) List(ctx context.Context, playerID string, unreadOnly bool) (types.Inbox, error) {
	items, err := s.store.List(ctx, playerID, unreadOnly)
	if err != nil {
		return types.Inbox{}, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.store.UnreadCount(ctx, playerID)
	if err != nil {
		return types.Inbox{}, fmt.Errorf("count unread: %w", err)
	}
	out := types.Inbox{Unread: unread, Notifications: make([]types.Notification, 0, len(items))}
	for _, n := range items {
		out.Notifications = append(out.Notifications, types.Notification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      string(n.Type),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, playerID, id string) error {
	if err := s.store.MarkRead(ctx, playerID, id); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	metrics.RecordNotification("read")
	s.changed(ctx, playerID)
	return nil
}

// Delete hides a notification from the player.
func (s *Service) Delete(ctx context.Context, playerID, id string) error {
	if err := s.store.Delete(ctx, playerID, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	metrics.RecordNotification("delete")
	s.changed(ctx, playerID)
	return nil
}

// UnreadCount returns how many live notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, playerID string) (int, error) {
	return s.store.UnreadCount(ctx, playerID)
}

func (s *Service) changed(ctx context.Context, playerID string) {
	if err := s.feed.Publish(ctx, model.NewChangeEvent(model.InboxTopic(playerID))); err != nil {
		s.log.Warn(ctx, "inbox change not published",
			logger.String("player_id", playerID), logger.Error(err))
	}
}
