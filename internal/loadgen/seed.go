package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
)

// Seed registers cfg.Players generated players and applies their stats with
// cfg.Workers concurrent workers.
func Seed(ctx context.Context, cfg *Config, c *Client, gen *Generator) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("loadgen")

	if err := c.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	players := gen.Players(cfg.Players, cfg.VisibleRatio)
	stats.PlayersGenerated = len(players)
	log.Info(ctx, "seeding players",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", len(players)),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", gen.Seed()))

	var registered, applied, stale, failed int64

	work := make(chan Player, cfg.Workers*2)
	var wg sync.WaitGroup
	for range max(cfg.Workers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				err := seedOne(ctx, c, p, &registered)
				switch {
				case err == nil:
					atomic.AddInt64(&applied, 1)
				case errors.Is(err, ErrRecomputeFailed):
					atomic.AddInt64(&stale, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "seed player failed", logger.String("playerID", p.PlayerID), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, p := range players {
			select {
			case <-ctx.Done():
				return
			case work <- p:
			}
		}
	}()
	wg.Wait()

	stats.PlayersRegistered = int(atomic.LoadInt64(&registered))
	stats.StatsApplied = int(atomic.LoadInt64(&applied))
	stats.RecomputeFailures = int(atomic.LoadInt64(&stale))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func seedOne(ctx context.Context, c *Client, p Player, registered *int64) error {
	if _, err := c.Register(ctx, p); err != nil && !errors.Is(err, ErrRecomputeFailed) {
		return fmt.Errorf("register: %w", err)
	}
	atomic.AddInt64(registered, 1)

	_, err := c.SetStats(ctx, p.PlayerID, model.Patch{
		Points:      model.Int64(p.Points),
		Wins:        model.Int64(p.Wins),
		Losses:      model.Int64(p.Losses),
		Kills:       model.Int64(p.Kills),
		Deaths:      model.Int64(p.Deaths),
		GamesPlayed: model.Int64(p.GamesPlayed),
		Visible:     model.Bool(p.Visible),
	})
	return err
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.PlayersRegistered) / stats.Duration.Seconds()
	}
	logger.Named("loadgen").Info(ctx, "seed finished",
		logger.Int("generated", stats.PlayersGenerated),
		logger.Int("registered", stats.PlayersRegistered),
		logger.Int("statsApplied", stats.StatsApplied),
		logger.Int("recomputeFailures", stats.RecomputeFailures),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("playersPerSecond", perSecond))
}
