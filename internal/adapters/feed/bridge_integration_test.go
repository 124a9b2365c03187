//go:build integration

package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/s3m-esports/standings/internal/adapters/feed"
	"github.com/s3m-esports/standings/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := tcnats.Run(ctx, "nats:2.10-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(45*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("nats url: %v", err)
	}
	return url
}

func TestBridge(t *testing.T) {
	url := startNATS(t)

	Convey("Given two instances bridged over NATS", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a, err := feed.NewBridge(ctx, feed.NewBroker(feed.WithOrigin("a")), url, feed.BridgeConfig{Workers: 1, QueueSize: 16})
		So(err, ShouldBeNil)
		defer a.Close()
		b, err := feed.NewBridge(ctx, feed.NewBroker(feed.WithOrigin("b")), url, feed.BridgeConfig{Workers: 1, QueueSize: 16})
		So(err, ShouldBeNil)
		defer b.Close()

		onA, err := a.Subscribe(ctx, model.TopicLeaderboard)
		So(err, ShouldBeNil)
		onB, err := b.Subscribe(ctx, model.TopicLeaderboard)
		So(err, ShouldBeNil)

		// Let both NATS subscriptions register.
		time.Sleep(200 * time.Millisecond)

		Convey("When instance a publishes", func() {
			ev := model.NewChangeEvent(model.TopicLeaderboard)
			So(a.Publish(ctx, ev), ShouldBeNil)

			Convey("Then both instances deliver it exactly once", func() {
				got, ok := receive(onA, 2*time.Second)
				So(ok, ShouldBeTrue)
				So(got.ID, ShouldEqual, ev.ID)

				got, ok = receive(onB, 2*time.Second)
				So(ok, ShouldBeTrue)
				So(got.ID, ShouldEqual, ev.ID)
				So(got.Origin, ShouldEqual, "a")

				_, again := receive(onA, 300*time.Millisecond)
				So(again, ShouldBeFalse)
			})
		})
	})
}
