package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	service "github.com/s3m-esports/standings/internal/app"
	"github.com/s3m-esports/standings/internal/app/gateway"
	"github.com/s3m-esports/standings/internal/config"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var admin = model.Actor{ID: "admin-1", Role: model.RoleAdmin}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.HealIntervalSec = 0
	cfg.RecomputeBackoffMS = 1
	return cfg
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["driver"], ShouldEqual, config.DriverMemory)
		})
	})

	Convey("Given a service with an invalid config", t, func() {
		cfg := testConfig()
		cfg.StoreDriver = "mongo"
		svc := service.New(service.WithConfig(cfg))

		Convey("Then it should refuse to start", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithConfig(testConfig()))
		// Ensure service is stopped after test
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalPlayers"], ShouldEqual, 0)
				So(stats["feedOrigin"], ShouldNotBeEmpty)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given a service that never started", t, func() {
		svc := service.New()

		Convey("Then subscribing fails", func() {
			_, err := svc.Subscribe(context.Background(), model.TopicLeaderboard)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_Register(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithConfig(testConfig()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a player registers themself", func() {
			self := model.Actor{ID: "p1", Role: model.RoleUser}
			rec, created, err := svc.Register(ctx, self, model.Profile{PlayerID: "p1", Username: "bolt"})

			Convey("Then a hidden zero record is created", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(rec.Visible, ShouldBeFalse)
				So(rec.Points, ShouldEqual, 0)
			})

			Convey("And registering again creates nothing", func() {
				_, created, err := svc.Register(ctx, self, model.Profile{PlayerID: "p1", Username: "bolt"})
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
			})
		})

		Convey("When a user registers someone else", func() {
			_, _, err := svc.Register(ctx, model.Actor{ID: "p1", Role: model.RoleUser},
				model.Profile{PlayerID: "p2", Username: "other"})

			Convey("Then it is refused", func() {
				So(errors.Is(err, gateway.ErrUnauthorized), ShouldBeTrue)
			})
		})

		Convey("When an admin registers a player and edits stats", func() {
			_, _, err := svc.Register(ctx, admin, model.Profile{PlayerID: "p2", Username: "zed"})
			So(err, ShouldBeNil)
			_, err = svc.SetStats(ctx, admin, "p2", model.Patch{Points: model.Int64(900), Visible: model.Bool(true)})
			So(err, ShouldBeNil)

			Convey("Then the board shows the profile name and rank", func() {
				card, err := svc.Player(ctx, "p2")
				So(err, ShouldBeNil)
				So(card.Rank, ShouldEqual, 1)
				So(card.DisplayName, ShouldEqual, "zed")

				sum, err := svc.Summary(ctx)
				So(err, ShouldBeNil)
				So(sum.VisiblePlayers, ShouldEqual, 1)
				So(sum.LastRecompute, ShouldNotBeNil)
			})
		})
	})
}

func TestService_SQLiteDriver(t *testing.T) {
	Convey("Given a service on a SQLite file", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.StoreDriver = config.DriverSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "standings.db")

		svc := service.New(service.WithConfig(cfg))
		So(svc.Start(ctx), ShouldBeNil)

		_, _, err := svc.Register(ctx, admin, model.Profile{PlayerID: "p1", Username: "bolt"})
		So(err, ShouldBeNil)
		_, err = svc.SetVisibility(ctx, admin, "p1", true)
		So(err, ShouldBeNil)
		_, err = svc.AddPoints(ctx, admin, "p1", 40, "grant-1")
		So(err, ShouldBeNil)
		_, err = svc.SendNotification(ctx, admin, "p1", "Welcome", "Season 3 is live", model.NotificationInfo)
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("When the service restarts on the same file", func() {
			again := service.New(service.WithConfig(cfg))
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			Convey("Then records, ranks, profiles and notifications survive", func() {
				card, err := again.Player(ctx, "p1")
				So(err, ShouldBeNil)
				So(card.Points, ShouldEqual, 40)
				So(card.Rank, ShouldEqual, 1)
				So(card.DisplayName, ShouldEqual, "bolt")

				box, err := again.Inbox(ctx, "p1", true)
				So(err, ShouldBeNil)
				So(box.Unread, ShouldEqual, 1)
			})
		})
	})
}
