package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/s3m-esports/standings/internal/adapters/mq/queue"
	worker "github.com/s3m-esports/standings/internal/adapters/mq/worker"
	model "github.com/s3m-esports/standings/internal/domain/model"
	logging "github.com/s3m-esports/standings/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockSender struct {
	mu   sync.Mutex
	sent []queue.Event
	fail map[model.Topic]error
}

func newMockSender() *mockSender {
	return &mockSender{fail: make(map[model.Topic]error)}
}

func (m *mockSender) Send(ctx context.Context, e queue.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.fail[e.Topic]; ok {
		return err
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *mockSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestRelayWorker(t *testing.T) {
	convey.Convey("Given a relay worker over a queue", t, func() {
		_ = logging.Init()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		sender := newMockSender()
		w := worker.NewRelayWorker(q, sender, worker.WithName("relay-test"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When events are enqueued", func() {
			q.Enqueue(ctx, model.NewChangeEvent(model.TopicLeaderboard))
			q.Enqueue(ctx, model.NewChangeEvent(model.PlayerTopic("p1")))

			convey.Convey("Then each is sent once", func() {
				convey.So(waitFor(func() bool { return sender.count() == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sender fails for one topic", func() {
			sender.mu.Lock()
			sender.fail[model.PlayerTopic("bad")] = errors.New("nats down")
			sender.mu.Unlock()
			q.Enqueue(ctx, model.NewChangeEvent(model.PlayerTopic("bad")))
			q.Enqueue(ctx, model.NewChangeEvent(model.TopicLeaderboard))

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return sender.count() == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		sender := newMockSender()
		pool := worker.NewPool(3, q, sender)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		for i := 0; i < 30; i++ {
			q.Enqueue(ctx, model.NewChangeEvent(model.TopicLeaderboard))
		}

		convey.Convey("Then every event is relayed", func() {
			convey.So(waitFor(func() bool { return sender.count() == 30 }), convey.ShouldBeTrue)
		})

		convey.Convey("Then shutdown closes the queue", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})
}
