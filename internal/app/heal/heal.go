// Package heal periodically recomputes ranks so a failed recompute after a
// mutation is repaired without waiting for the next write.
package heal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

// ErrInvalidInterval is returned for a non-positive interval.
var ErrInvalidInterval = errors.New("heal interval must be positive")

// Recomputer forces a rank recomputation and publishes what moved.
type Recomputer interface {
	Recompute(ctx context.Context, actor model.Actor) ([]string, error)
}

// Scheduler runs Recompute on a fixed interval.
type Scheduler struct {
	target   Recomputer
	interval time.Duration
	sched    gocron.Scheduler
	job      gocron.Job
	log      logger.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(target Recomputer, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		target:   target,
		interval: interval,
		sched:    sched,
		log:      logger.Named("heal"),
	}, nil
}

// Start registers the job and starts ticking. Runs stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)

	job, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
		gocron.WithName("recompute"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule recompute: %w", err)
	}
	s.job = job
	s.sched.Start()
	s.log.Info(ctx, "self-heal scheduler started", logger.String("interval", s.interval.String()))
	return nil
}

// RunNow triggers one run outside the schedule.
func (s *Scheduler) RunNow() error {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job == nil {
		return errors.New("heal scheduler not started")
	}
	return job.RunNow()
}

// Stop cancels a run in progress and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	changed, err := s.target.Recompute(ctx, model.SystemActor)
	if err != nil {
		metrics.RecordErrorByComponent("heal", "recompute_failed")
		s.log.Warn(ctx, "scheduled recompute failed", logger.Error(err))
		return
	}
	if len(changed) > 0 {
		s.log.Info(ctx, "scheduled recompute repaired ranks", logger.Int("changed", len(changed)))
	}
}
