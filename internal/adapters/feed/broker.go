package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
	"github.com/s3m-esports/standings/pkg/metrics"
)

const defaultBuffer = 16

// Broker is the in-process Feed on a watermill GoChannel.
type Broker struct {
	pubsub *gochannel.GoChannel
	origin string
	buffer int

	closed atomic.Bool
	wg     sync.WaitGroup
	log    logger.Logger
}

var _ Feed = (*Broker)(nil)

// NewBroker creates a broker. Events published without an origin are stamped
// with this broker's instance id.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		origin: uuid.NewString(),
		buffer: defaultBuffer,
		log:    logger.Named("feed"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pubsub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(b.buffer)},
		watermill.NewSlogLogger(logger.SlogAtLeast(slog.LevelWarn).With("component", "watermill")),
	)
	return b
}

// Origin returns the instance id stamped on locally published events.
func (b *Broker) Origin() string { return b.origin }

// Publish implements Feed.
func (b *Broker) Publish(ctx context.Context, e model.ChangeEvent) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if e.Topic == "" {
		return ErrInvalidTopic
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Origin == "" {
		e.Origin = b.origin
	}
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(string(e.Topic), msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Topic, err)
	}
	metrics.RecordFeedPublish(e.Topic.Kind())
	return nil
}

// Subscribe implements Feed.
func (b *Broker) Subscribe(ctx context.Context, topic model.Topic) (<-chan model.ChangeEvent, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	msgs, err := b.pubsub.Subscribe(ctx, string(topic))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan model.ChangeEvent, b.buffer)
	metrics.AddFeedSubscribers(1)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer metrics.AddFeedSubscribers(-1)
		defer close(out)
		for msg := range msgs {
			msg.Ack()
			var e model.ChangeEvent
			if err := msgpack.Unmarshal(msg.Payload, &e); err != nil {
				b.log.Warn(ctx, "dropping undecodable change event",
					logger.String("topic", string(topic)), logger.Error(err))
				continue
			}
			select {
			case out <- e:
			default:
				metrics.RecordFeedDrop(topic.Kind())
			}
		}
	}()
	return out, nil
}

// Close ends every subscription. It is safe to call more than once.
func (b *Broker) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}
