// Package session keeps a viewer's copy of some read model fresh.
//
// A session subscribes to one topic, loads a baseline, and reloads on every
// change event. Events arriving while a reload is running collapse into a
// single follow-up reload. Only the newest loaded value is kept for a slow
// consumer.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

// State is the session lifecycle position.
type State int

// Session states.
const (
	Idle State = iota
	Subscribed
	Refreshing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribed:
		return "subscribed"
	case Refreshing:
		return "refreshing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Subscriber is the part of the change feed a session needs.
type Subscriber interface {
	Subscribe(ctx context.Context, topic model.Topic) (<-chan model.ChangeEvent, error)
}

// Loader fetches the current value of the read model.
type Loader[T any] func(ctx context.Context) (T, error)

// Session delivers fresh values of T on Views.
type Session[T any] struct {
	feed  Subscriber
	topic model.Topic
	load  Loader[T]
	kind  string
	log   logger.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	views  chan T
}

// New creates an idle session. kind labels metrics and logs, e.g. "leaderboard".
func New[T any](feed Subscriber, topic model.Topic, kind string, load Loader[T]) *Session[T] {
	return &Session[T]{
		feed:  feed,
		topic: topic,
		load:  load,
		kind:  kind,
		log:   logger.Named("session").Named(kind),
		views: make(chan T, 1),
		done:  make(chan struct{}),
	}
}

// Open subscribes, loads the baseline and starts following changes. The
// session ends when ctx is done or Close is called.
func (s *Session[T]) Open(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return ErrClosed
	case Idle:
	default:
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Refreshing
	s.mu.Unlock()

	// Subscribe before loading so no change between the two is missed.
	events, err := s.feed.Subscribe(ctx, s.topic)
	if err != nil {
		s.abort()
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	baseline, err := s.load(ctx)
	if err != nil {
		metrics.RecordSessionRefresh(s.kind, "error")
		s.abort()
		return fmt.Errorf("load baseline: %w", err)
	}
	metrics.RecordSessionRefresh(s.kind, "baseline")
	s.views <- baseline
	s.setState(Subscribed)

	metrics.AddActiveSessions(s.kind, 1)
	go s.run(ctx, events)
	return nil
}

// Views yields loaded values. It is closed when the session ends.
func (s *Session[T]) Views() <-chan T { return s.views }

// State returns the current lifecycle state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close ends the session, discards any reload in flight and closes Views.
// It is safe to call more than once and on a session that never opened.
func (s *Session[T]) Close() error {
	s.mu.Lock()
	prev := s.state
	s.state = Closed
	cancel := s.cancel
	s.mu.Unlock()

	switch prev {
	case Closed:
		return nil
	case Idle:
		close(s.views)
		return nil
	}
	cancel()
	<-s.done
	return nil
}

func (s *Session[T]) abort() {
	s.mu.Lock()
	s.state = Closed
	s.cancel()
	s.mu.Unlock()
	close(s.views)
	close(s.done)
}

func (s *Session[T]) setState(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return false
	}
	s.state = st
	return true
}

func (s *Session[T]) run(ctx context.Context, events <-chan model.ChangeEvent) {
	defer func() {
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
		close(s.views)
		metrics.AddActiveSessions(s.kind, -1)
		close(s.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
		drain(events)
		if !s.refresh(ctx) {
			return
		}
	}
}

// refresh reloads once. It returns false when the session is ending.
func (s *Session[T]) refresh(ctx context.Context) bool {
	if !s.setState(Refreshing) {
		return false
	}
	v, err := s.load(ctx)
	if ctx.Err() != nil {
		metrics.RecordSessionRefresh(s.kind, "discarded")
		return false
	}
	if err != nil {
		metrics.RecordSessionRefresh(s.kind, "error")
		s.log.Warn(ctx, "refresh failed, keeping previous view",
			logger.String("topic", string(s.topic)), logger.Error(err))
	} else {
		metrics.RecordSessionRefresh(s.kind, "ok")
		s.emit(v)
	}
	return s.setState(Subscribed)
}

// emit replaces any value the consumer has not taken yet.
func (s *Session[T]) emit(v T) {
	for {
		select {
		case s.views <- v:
			return
		default:
		}
		select {
		case <-s.views:
		default:
		}
	}
}

// drain discards events already queued; one reload covers them all.
func drain(events <-chan model.ChangeEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
