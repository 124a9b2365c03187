// Package gateway is the only entry point for score mutations.
//
// Every mutation runs in the same order: authorize, write the record, recompute
// ranks (retried), then publish invalidations. A failed recompute keeps the
// write, still publishes, and reports ErrRecomputationFailed.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/domain/dedupe"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const (
	defaultAttempts = 2
	defaultBackoff  = 50 * time.Millisecond
)

// Publisher is the part of the change feed the gateway needs.
type Publisher interface {
	Publish(ctx context.Context, e model.ChangeEvent) error
}

// Gateway validates and applies score mutations.
type Gateway struct {
	store  repository.Store
	feed   Publisher
	dedupe dedupe.Deduper
	rank   ranking.Func

	attempts int
	backoff  time.Duration

	lastRecompute atomic.Pointer[time.Time]
	log           logger.Logger
}

// New creates a gateway over store that publishes to feed.
func New(store repository.Store, feed Publisher, opts ...Option) *Gateway {
	g := &Gateway{
		store:    store,
		feed:     feed,
		rank:     ranking.Compute,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		log:      logger.Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.dedupe == nil {
		g.dedupe = dedupe.NewInMemoryDeduper()
	}
	return g
}

// SetVisibility shows or hides a player on the public leaderboard.
func (g *Gateway) SetVisibility(ctx context.Context, actor model.Actor, playerID string, visible bool) (model.ScoreRecord, error) {
	return g.mutate(ctx, "set_visibility", actor, playerID, model.Patch{Visible: model.Bool(visible)})
}

// SetStats applies a partial stats update.
func (g *Gateway) SetStats(ctx context.Context, actor model.Actor, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	if patch.IsEmpty() {
		return model.ScoreRecord{}, ErrEmptyPatch
	}
	return g.mutate(ctx, "set_stats", actor, playerID, patch)
}

// AddPoints adds delta to a player's points. A repeated non-empty requestID
// is acknowledged with the current record and not applied again.
func (g *Gateway) AddPoints(ctx context.Context, actor model.Actor, playerID string, delta int64, requestID string) (model.ScoreRecord, error) {
	if !actor.IsAdmin() {
		metrics.RecordMutation("add_points", "unauthorized", 0)
		return model.ScoreRecord{}, ErrUnauthorized
	}
	if delta == 0 {
		return model.ScoreRecord{}, ErrEmptyPatch
	}
	if requestID != "" {
		key := dedupe.Key(playerID, requestID)
		if g.dedupe.SeenAndRecord(ctx, key) {
			metrics.RecordDuplicateRequest()
			g.log.Info(ctx, "duplicate point grant ignored",
				logger.String("player_id", playerID), logger.String("request_id", requestID))
			return g.store.Get(ctx, playerID)
		}
		rec, err := g.mutate(ctx, "add_points", actor, playerID, model.Patch{PointsDelta: delta})
		if err != nil && !errors.Is(err, ErrRecomputationFailed) {
			g.dedupe.Unrecord(ctx, key)
		}
		return rec, err
	}
	return g.mutate(ctx, "add_points", actor, playerID, model.Patch{PointsDelta: delta})
}

// Initialize creates the registration-time record. It needs no admin role and
// publishes only when a record was created. New records start hidden, so
// no recompute is needed.
func (g *Gateway) Initialize(ctx context.Context, playerID string) (model.ScoreRecord, bool, error) {
	start := time.Now()
	rec, created, err := g.store.Insert(ctx, playerID)
	if err != nil {
		metrics.RecordMutation("initialize", "error", metrics.Since(start))
		return model.ScoreRecord{}, false, fmt.Errorf("initialize %s: %w", playerID, err)
	}
	if created {
		g.publish(ctx, []string{playerID})
		g.log.Info(ctx, "score record created", logger.String("player_id", playerID))
	}
	metrics.RecordMutation("initialize", outcome(created), metrics.Since(start))
	return rec, created, nil
}

// Recompute forces a rank recomputation and publishes for every moved player.
func (g *Gateway) Recompute(ctx context.Context, actor model.Actor) ([]string, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	changed, err := g.recompute(ctx)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		g.publish(ctx, changed)
	}
	return changed, nil
}

// LastRecompute returns when ranks were last recomputed successfully.
func (g *Gateway) LastRecompute() *time.Time {
	return g.lastRecompute.Load()
}

func (g *Gateway) mutate(ctx context.Context, op string, actor model.Actor, playerID string, patch model.Patch) (model.ScoreRecord, error) {
	start := time.Now()
	if !actor.IsAdmin() {
		metrics.RecordMutation(op, "unauthorized", metrics.Since(start))
		return model.ScoreRecord{}, ErrUnauthorized
	}

	rec, err := g.store.Upsert(ctx, playerID, patch)
	if err != nil {
		metrics.RecordMutation(op, "error", metrics.Since(start))
		return model.ScoreRecord{}, fmt.Errorf("%s %s: %w", op, playerID, err)
	}

	changed, rerr := g.recompute(ctx)
	g.publish(ctx, append(changed, playerID))

	if rerr != nil {
		metrics.RecordMutation(op, "recompute_failed", metrics.Since(start))
		g.log.Error(ctx, "score stored but ranks are stale",
			logger.String("op", op), logger.String("player_id", playerID), logger.Error(rerr))
		return rec, rerr
	}

	if fresh, err := g.store.Get(ctx, playerID); err == nil {
		rec = fresh
	}
	metrics.RecordMutation(op, "ok", metrics.Since(start))
	g.log.Debug(ctx, "mutation applied",
		logger.String("op", op), logger.String("actor", actor.ID),
		logger.String("player_id", playerID), logger.Int("rank", rec.Rank()))
	return rec, nil
}

// recompute runs Rerank up to g.attempts times with linear backoff.
func (g *Gateway) recompute(ctx context.Context) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		start := time.Now()
		changed, err := g.store.Rerank(ctx, g.rank)
		if err == nil {
			now := time.Now().UTC()
			g.lastRecompute.Store(&now)
			metrics.RecordRecompute(metrics.Since(start), len(changed))
			return changed, nil
		}
		lastErr = err
		if attempt == g.attempts {
			break
		}
		metrics.RecordRecomputeRetry()
		g.log.Warn(ctx, "recompute failed, retrying",
			logger.Int("attempt", attempt), logger.Error(err))
		if err := sleep(ctx, g.backoff*time.Duration(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	metrics.RecordRecomputeFailure()
	metrics.RecordErrorByComponent("gateway", "recompute_failed")
	return nil, fmt.Errorf("%w: %w", ErrRecomputationFailed, lastErr)
}

// publish invalidates the leaderboard and the given players. Delivery failures
// are logged; viewers catch up on the next change.
func (g *Gateway) publish(ctx context.Context, playerIDs []string) {
	topics := make([]model.Topic, 0, len(playerIDs)+1)
	topics = append(topics, model.TopicLeaderboard)
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		topics = append(topics, model.PlayerTopic(id))
	}
	for _, t := range topics {
		if err := g.feed.Publish(ctx, model.NewChangeEvent(t)); err != nil {
			g.log.Warn(ctx, "change event not published",
				logger.String("topic", string(t)), logger.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func outcome(created bool) string {
	if created {
		return "created"
	}
	return "exists"
}
