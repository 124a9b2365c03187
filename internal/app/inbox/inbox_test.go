package inbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/inboxstore"
	"github.com/s3m-esports/standings/internal/app/inbox"
	"github.com/s3m-esports/standings/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}

type recorder struct {
	mu     sync.Mutex
	topics []model.Topic
}

func (r *recorder) Publish(_ context.Context, e model.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, e.Topic)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}

func tickClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestInbox(t *testing.T) {
	Convey("Given an inbox over the memory store", t, func() {
		ctx := context.Background()
		feed := &recorder{}
		svc := inbox.New(inboxstore.NewMemory(), feed, inbox.WithClock(tickClock()))

		Convey("When a non-admin sends", func() {
			_, err := svc.Send(ctx, model.Actor{ID: "u", Role: model.RoleModerator}, "p1", "hi", "", "")
			Convey("Then it is refused and nothing is published", func() {
				So(errors.Is(err, inbox.ErrUnauthorized), ShouldBeTrue)
				So(feed.count(), ShouldEqual, 0)
			})
		})

		Convey("When the content is invalid", func() {
			_, err := svc.Send(ctx, admin, "p1", "   ", "body", model.NotificationInfo)
			So(errors.Is(err, inbox.ErrInvalidNotification), ShouldBeTrue)
			_, err = svc.Send(ctx, admin, "p1", "ok", "body", "shout")
			So(errors.Is(err, inbox.ErrInvalidNotification), ShouldBeTrue)
			_, err = svc.Send(ctx, admin, "bad.id", "ok", "body", "")
			So(errors.Is(err, inbox.ErrInvalidNotification), ShouldBeTrue)
		})

		Convey("When two notifications are sent to one player", func() {
			first, err := svc.Send(ctx, admin, "p1", "Season starts", "Good luck", "")
			So(err, ShouldBeNil)
			second, err := svc.Send(ctx, admin, "p1", "Rank up", "You reached top 3", model.NotificationSuccess)
			So(err, ShouldBeNil)

			Convey("Then the inbox lists them newest first with the unread count", func() {
				box, err := svc.List(ctx, "p1", false)
				So(err, ShouldBeNil)
				So(box.Unread, ShouldEqual, 2)
				So(len(box.Notifications), ShouldEqual, 2)
				So(box.Notifications[0].ID, ShouldEqual, second.ID)
				So(box.Notifications[1].Type, ShouldEqual, "info")
				So(feed.topics, ShouldResemble, []model.Topic{model.InboxTopic("p1"), model.InboxTopic("p1")})
			})

			Convey("And marking one read lowers the unread count and publishes", func() {
				So(svc.MarkRead(ctx, "p1", first.ID), ShouldBeNil)
				n, err := svc.UnreadCount(ctx, "p1")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(feed.count(), ShouldEqual, 3)

				unread, err := svc.List(ctx, "p1", true)
				So(err, ShouldBeNil)
				So(len(unread.Notifications), ShouldEqual, 1)
				So(unread.Notifications[0].ID, ShouldEqual, second.ID)
			})

			Convey("And a deleted one disappears", func() {
				So(svc.Delete(ctx, "p1", second.ID), ShouldBeNil)
				box, _ := svc.List(ctx, "p1", false)
				So(len(box.Notifications), ShouldEqual, 1)
				So(errors.Is(svc.Delete(ctx, "p1", second.ID), inbox.ErrNotFound), ShouldBeTrue)
			})

			Convey("And another player cannot touch them", func() {
				So(errors.Is(svc.MarkRead(ctx, "p2", first.ID), inbox.ErrNotFound), ShouldBeTrue)
				So(feed.count(), ShouldEqual, 2)
			})
		})
	})
}
