// Package service wires the store, change feed, gateway, view builder, inbox
// and self-heal scheduler into the dependency bundle the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/directory"
	"github.com/s3m-esports/standings/internal/adapters/feed"
	"github.com/s3m-esports/standings/internal/adapters/inboxstore"
	"github.com/s3m-esports/standings/internal/adapters/pgstore"
	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/adapters/sqlitestore"
	"github.com/s3m-esports/standings/internal/app/gateway"
	"github.com/s3m-esports/standings/internal/app/heal"
	"github.com/s3m-esports/standings/internal/app/inbox"
	"github.com/s3m-esports/standings/internal/app/view"
	"github.com/s3m-esports/standings/internal/config"
	"github.com/s3m-esports/standings/internal/domain/dedupe"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/types"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the standings system.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store      repository.Store
	directory  directory.ReadWriter
	inboxStore inboxstore.Store
	broker     *feed.Broker
	feed       feed.Feed
	deduper    dedupe.Deduper
	gateway    *gateway.Gateway
	views      *view.Builder
	inbox      *inbox.Service
	heal       *heal.Scheduler

	// closers run in reverse order on Stop.
	closers []func() error

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{cfg: config.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the configured store and starts every component.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting standings service...", logger.String("driver", s.cfg.StoreDriver))

	if err := s.openStorage(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}
	if err := s.openFeed(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.gateway = gateway.New(s.store, s.feed,
		gateway.WithRecomputeAttempts(s.cfg.RecomputeAttempts),
		gateway.WithRecomputeBackoff(s.cfg.RecomputeBackoff()),
		gateway.WithDeduper(s.deduper),
	)
	s.views = view.NewBuilder(s.store, s.directory,
		view.WithMaxLimit(s.cfg.MaxLeaderboardLimit),
		view.WithLastRecompute(s.gateway.LastRecompute),
	)
	s.inbox = inbox.New(s.inboxStore, s.feed)

	// Ranks may be stale from a previous run that stopped mid-recompute.
	if _, err := s.gateway.Recompute(ctx, model.SystemActor); err != nil {
		s.logger.Warn(ctx, "startup recompute failed", logger.Error(err))
	}

	if s.cfg.HealIntervalSec > 0 {
		h, err := heal.New(s.gateway, s.cfg.HealInterval())
		if err != nil {
			s.closeAll(ctx)
			return err
		}
		if err := h.Start(ctx); err != nil {
			s.closeAll(ctx)
			return err
		}
		s.heal = h
		s.closers = append(s.closers, h.Stop)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "standings service started",
		logger.String("driver", s.cfg.StoreDriver),
		logger.Bool("nats", s.cfg.NATSURL != ""),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Int("players", s.store.Count(ctx)),
	)
	return nil
}

func (s *Service) openStorage(ctx context.Context) error {
	switch s.cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlitestore.Open(ctx, s.cfg.SQLitePath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, db.Close)
		if err := sqlitestore.Migrate(ctx, db); err != nil {
			return err
		}
		s.store = sqlitestore.New(db)
		s.directory = directory.NewSQLite(db)
		s.inboxStore = inboxstore.NewSQLite(db)

	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, s.cfg.PostgresDSN, s.cfg.PostgresMaxConns)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, db.Close)
		if err := pgstore.Migrate(ctx, db); err != nil {
			return err
		}
		dir, err := directory.NewPostgres(ctx, s.cfg.PostgresDSN, int32(s.cfg.PostgresMaxConns))
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() error { dir.Close(); return nil })
		s.store = pgstore.New(db)
		s.directory = dir
		s.inboxStore = inboxstore.NewPostgres(db)

	default:
		s.store = repository.NewMemoryStore(ctx)
		s.directory = directory.NewMemory()
		s.inboxStore = inboxstore.NewMemory()
	}
	s.closers = append(s.closers, s.store.Close)
	return nil
}

func (s *Service) openFeed(ctx context.Context) error {
	s.broker = feed.NewBroker(feed.WithBuffer(s.cfg.FeedBuffer))
	if s.cfg.NATSURL == "" {
		s.feed = s.broker
		s.closers = append(s.closers, s.broker.Close)
		return nil
	}
	bridge, err := feed.NewBridge(ctx, s.broker, s.cfg.NATSURL, feed.BridgeConfig{
		Workers:   s.cfg.NATSRelayWorkers,
		QueueSize: s.cfg.NATSQueueSize,
	})
	if err != nil {
		s.closers = append(s.closers, s.broker.Close)
		return err
	}
	s.feed = bridge
	s.closers = append(s.closers, bridge.Close)
	return nil
}

func (s *Service) closeAll(ctx context.Context) {
	for _, c := range slices.Backward(s.closers) {
		if err := c(); err != nil {
			s.logger.Warn(ctx, "component close failed", logger.Error(err))
		}
	}
	s.closers = nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping standings service...")
	s.closeAll(ctx)
	s.started = false
	s.logger.Info(ctx, "standings service stopped")
}

// Gateway exposes the mutation gateway.
func (s *Service) Gateway() *gateway.Gateway { return s.gateway }

// Feed exposes the change feed.
func (s *Service) Feed() feed.Feed { return s.feed }

// SetStats applies an admin stats patch.
func (s *Service) SetStats(ctx context.Context, actor model.Actor, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	return s.gateway.SetStats(ctx, actor, playerID, patch)
}

// SetVisibility shows or hides a player.
func (s *Service) SetVisibility(ctx context.Context, actor model.Actor, playerID string, visible bool) (model.ScoreRecord, error) {
	return s.gateway.SetVisibility(ctx, actor, playerID, visible)
}

// AddPoints grants or removes points once per request id.
func (s *Service) AddPoints(ctx context.Context, actor model.Actor, playerID string, delta int64, requestID string) (model.ScoreRecord, error) {
	return s.gateway.AddPoints(ctx, actor, playerID, delta, requestID)
}

// Recompute forces a rank recomputation.
func (s *Service) Recompute(ctx context.Context, actor model.Actor) ([]string, error) {
	return s.gateway.Recompute(ctx, actor)
}

// Register stores the profile and creates the player's score record. Actors
// may register themselves; admins may register anyone.
func (s *Service) Register(ctx context.Context, actor model.Actor, p model.Profile) (model.ScoreRecord, bool, error) {
	if actor.ID != p.PlayerID && !actor.IsAdmin() {
		return model.ScoreRecord{}, false, gateway.ErrUnauthorized
	}
	if err := s.directory.Put(ctx, p); err != nil {
		return model.ScoreRecord{}, false, fmt.Errorf("register profile: %w", err)
	}
	return s.gateway.Initialize(ctx, p.PlayerID)
}

// Board builds one leaderboard page.
func (s *Service) Board(ctx context.Context, page view.Page) (types.Board, error) {
	return s.views.Build(ctx, page)
}

// Player builds one player card.
func (s *Service) Player(ctx context.Context, playerID string) (types.PlayerCard, error) {
	return s.views.Player(ctx, playerID)
}

// Summary returns the admin overview.
func (s *Service) Summary(ctx context.Context) (types.Summary, error) {
	return s.views.Summary(ctx)
}

// SendNotification delivers an inbox entry.
func (s *Service) SendNotification(ctx context.Context, actor model.Actor, playerID, title, message string, typ model.NotificationType) (model.Notification, error) {
	return s.inbox.Send(ctx, actor, playerID, title, message, typ)
}

// Inbox lists a player's notifications.
func (s *Service) Inbox(ctx context.Context, playerID string, unreadOnly bool) (types.Inbox, error) {
	return s.inbox.List(ctx, playerID, unreadOnly)
}

// MarkRead flags a notification as read.
func (s *Service) MarkRead(ctx context.Context, playerID, id string) error {
	return s.inbox.MarkRead(ctx, playerID, id)
}

// DeleteNotification hides a notification.
func (s *Service) DeleteNotification(ctx context.Context, playerID, id string) error {
	return s.inbox.Delete(ctx, playerID, id)
}

// Subscribe opens a change feed subscription.
func (s *Service) Subscribe(ctx context.Context, topic model.Topic) (<-chan model.ChangeEvent, error) {
	s.mu.RLock()
	f := s.feed
	s.mu.RUnlock()
	if f == nil {
		return nil, ErrNotStarted
	}
	return f.Subscribe(ctx, topic)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"driver":     s.cfg.StoreDriver,
		"nats":       s.cfg.NATSURL != "",
		"dedupeSize": s.cfg.DedupeSize,
	}

	if s.started {
		ctx := context.Background()
		total := s.store.Count(ctx)
		stats["totalPlayers"] = total
		stats["dedupeEntries"] = s.deduper.Size()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["feedOrigin"] = s.broker.Origin()
		if at := s.gateway.LastRecompute(); at != nil {
			stats["lastRecompute"] = at.Format(time.RFC3339Nano)
		}
		if visible, err := s.store.AllVisible(ctx); err == nil {
			stats["visiblePlayers"] = len(visible)
			metrics.UpdatePlayerCounts(total, len(visible))
		}
	}

	return stats
}
