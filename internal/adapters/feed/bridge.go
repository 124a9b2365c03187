package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/s3m-esports/standings/internal/adapters/mq/queue"
	"github.com/s3m-esports/standings/internal/adapters/mq/worker"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

// SubjectPrefix namespaces relayed events on NATS.
const SubjectPrefix = "standings."

// Subject maps a topic to its NATS subject.
func Subject(t model.Topic) string { return SubjectPrefix + string(t) }

// Bridge extends a Broker across instances through NATS. Local publishes are
// delivered locally at once and queued for relay; events from other instances
// are re-published locally. Echoes of this instance's own events are dropped.
type Bridge struct {
	local *Broker
	conn  *nats.Conn
	queue *queue.InMemoryQueue
	pool  *worker.Pool
	sub   *nats.Subscription

	closeOnce sync.Once
	log       logger.Logger
}

var (
	_ Feed          = (*Bridge)(nil)
	_ worker.Sender = (*Bridge)(nil)
)

// BridgeConfig sizes the relay.
type BridgeConfig struct {
	Workers   int
	QueueSize int
}

// NewBridge connects to url and starts relaying. Cancelling ctx stops the
// relay workers; Close also drains the connection.
func NewBridge(ctx context.Context, local *Broker, url string, cfg BridgeConfig) (*Bridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("standings-"+local.Origin()),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newBridge(ctx, local, conn, cfg)
}

func newBridge(ctx context.Context, local *Broker, conn *nats.Conn, cfg BridgeConfig) (*Bridge, error) {
	b := &Bridge{
		local: local,
		conn:  conn,
		queue: queue.NewInMemoryQueue(queue.WithCapacity(cfg.QueueSize)),
		log:   logger.Named("feed-bridge"),
	}
	sub, err := conn.Subscribe(SubjectPrefix+">", b.receive)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s>: %w", SubjectPrefix, err)
	}
	b.sub = sub
	b.pool = worker.NewPool(cfg.Workers, b.queue, b)
	b.pool.Start(ctx)
	return b, nil
}

// Publish implements Feed.
func (b *Bridge) Publish(ctx context.Context, e model.ChangeEvent) error {
	if e.Origin == "" {
		e.Origin = b.local.Origin()
	}
	if err := b.local.Publish(ctx, e); err != nil {
		return err
	}
	if !b.queue.Enqueue(ctx, e) {
		b.log.Warn(ctx, "relay queue refused event", logger.String("topic", string(e.Topic)))
	}
	return nil
}

// Subscribe implements Feed.
func (b *Bridge) Subscribe(ctx context.Context, topic model.Topic) (<-chan model.ChangeEvent, error) {
	return b.local.Subscribe(ctx, topic)
}

// Send implements worker.Sender.
func (b *Bridge) Send(ctx context.Context, e queue.Event) error {
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	return b.conn.Publish(Subject(e.Topic), payload)
}

func (b *Bridge) receive(msg *nats.Msg) {
	var e model.ChangeEvent
	if err := msgpack.Unmarshal(msg.Data, &e); err != nil {
		metrics.RecordRelayError("decode")
		b.log.Warn(context.Background(), "undecodable relayed event",
			logger.String("subject", msg.Subject), logger.Error(err))
		return
	}
	if e.Origin == b.local.Origin() {
		return
	}
	if e.Topic == "" {
		e.Topic = model.Topic(strings.TrimPrefix(msg.Subject, SubjectPrefix))
	}
	metrics.RecordRelayReceived()
	if err := b.local.Publish(context.Background(), e); err != nil {
		b.log.Debug(context.Background(), "relayed event not delivered", logger.Error(err))
	}
}

// Close stops the relay, drains NATS and closes the local broker.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		_ = b.sub.Unsubscribe()
		_ = b.pool.Shutdown(context.Background())
		if derr := b.conn.Drain(); derr != nil {
			b.conn.Close()
		}
		err = b.local.Close()
	})
	return err
}
