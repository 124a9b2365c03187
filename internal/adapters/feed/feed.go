// Package feed broadcasts change events to live subscribers.
//
// Delivery is best effort and never replays: a subscriber only sees events
// published while it is subscribed. Each subscriber owns a bounded buffer;
// when it is full further events for that subscriber are dropped, because the
// pending one already forces a re-fetch.
package feed

import (
	"context"

	"github.com/s3m-esports/standings/internal/domain/model"
)

// Feed is the publish/subscribe contract used by the gateway and sessions.
type Feed interface {
	// Publish hands the event to every current subscriber of its topic. It
	// never waits for subscribers.
	Publish(ctx context.Context, e model.ChangeEvent) error

	// Subscribe returns a channel of events for topic. The channel is closed
	// when ctx is done or the feed is closed.
	Subscribe(ctx context.Context, topic model.Topic) (<-chan model.ChangeEvent, error)

	Close() error
}
