// Package worker drains the relay queue and hands each change event to a
// Sender, typically the NATS bridge.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/mq/queue"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 10 * time.Second
)

// Sender delivers one event to its destination.
type Sender interface {
	Send(ctx context.Context, e queue.Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// RelayWorker forwards events from the queue to a Sender.
type RelayWorker struct {
	queue  Queue
	sender Sender
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRelayWorker creates a worker with configuration options.
func NewRelayWorker(q Queue, sender Sender, opts ...Option) *RelayWorker {
	w := &RelayWorker{
		queue:    q,
		sender:   sender,
		name:     "relay",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("relay"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "relay" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run forwards events until ctx is done, Shutdown is called or the queue closes.
func (w *RelayWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.sender.Send(ctx, e); err != nil {
				metrics.RecordRelayError("send")
				metrics.RecordErrorByComponent("relay", "send_error")
				w.logger.Warn(ctx, "relay send failed",
					logger.String("topic", string(e.Topic)),
					logger.String("event_id", e.ID),
					logger.Error(err),
				)
				continue
			}
			metrics.RecordRelayPublished()
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *RelayWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool runs several relay workers over one queue.
type Pool struct {
	workers []*RelayWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount relay workers.
func NewPool(workerCount int, q Queue, sender Sender) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*RelayWorker, workerCount),
		queue:   q,
		logger:  logger.Named("relay-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewRelayWorker(q, sender, WithName("relay-"+strconv.Itoa(i)))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
