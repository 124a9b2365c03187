package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

type tick struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tick) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore(t *testing.T) *repository.MemoryStore {
	clock := &tick{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	s := repository.NewMemoryStore(context.Background(),
		repository.WithClock(clock.now),
		repository.WithMetricsUpdateInterval(0),
	)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func register(ctx context.Context, s repository.Store, id string, points int64) {
	_, created, err := s.Insert(ctx, id)
	So(err, ShouldBeNil)
	So(created, ShouldBeTrue)
	_, err = s.Upsert(ctx, id, model.Patch{Points: model.Int64(points), Visible: model.Bool(true)})
	So(err, ShouldBeNil)
}

func TestMemoryStore_Insert(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := newStore(t)

		Convey("When a player is inserted", func() {
			rec, created, err := s.Insert(ctx, "p1")

			Convey("Then a hidden zero record is created", func() {
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(rec.Visible, ShouldBeFalse)
				So(rec.RankPosition, ShouldBeNil)
				So(s.Count(ctx), ShouldEqual, 1)
			})

			Convey("And inserting again returns the same record", func() {
				_, _ = s.Upsert(ctx, "p1", model.Patch{Points: model.Int64(40)})
				again, created, err := s.Insert(ctx, "p1")
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(again.Points, ShouldEqual, 40)
				So(s.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When the id is malformed", func() {
			_, _, err := s.Insert(ctx, "bad.id")
			So(errors.Is(err, repository.ErrInvalidPlayerID), ShouldBeTrue)
		})
	})
}

func TestMemoryStore_Upsert(t *testing.T) {
	Convey("Given a registered player", t, func() {
		ctx := context.Background()
		s := newStore(t)
		created, _, _ := s.Insert(ctx, "p1")

		Convey("When stats are patched", func() {
			rec, err := s.Upsert(ctx, "p1", model.Patch{Wins: model.Int64(3), Kills: model.Int64(12)})

			Convey("Then the fields change and last_updated advances", func() {
				So(err, ShouldBeNil)
				So(rec.Wins, ShouldEqual, 3)
				So(rec.Kills, ShouldEqual, 12)
				So(rec.LastUpdated.After(created.LastUpdated), ShouldBeTrue)
			})

			Convey("And the rank position is untouched", func() {
				So(rec.RankPosition, ShouldBeNil)
			})
		})

		Convey("When a patch would make a counter negative", func() {
			_, err := s.Upsert(ctx, "p1", model.Patch{Deaths: model.Int64(-1)})

			Convey("Then it fails and the record is unchanged", func() {
				So(errors.Is(err, repository.ErrInvalidStats), ShouldBeTrue)
				rec, _ := s.Get(ctx, "p1")
				So(rec.Deaths, ShouldEqual, 0)
			})
		})

		Convey("When an unknown player is patched", func() {
			_, err := s.Upsert(ctx, "ghost", model.Patch{Points: model.Int64(1)})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(s.Count(ctx), ShouldEqual, 1)
		})

		Convey("When the caller mutates a returned record", func() {
			_, _ = s.Upsert(ctx, "p1", model.Patch{Visible: model.Bool(true)})
			_, _ = s.Rerank(ctx, ranking.Compute)
			rec, _ := s.Get(ctx, "p1")
			*rec.RankPosition = 99

			Convey("Then the stored copy is unaffected", func() {
				again, _ := s.Get(ctx, "p1")
				So(again.Rank(), ShouldEqual, 1)
			})
		})
	})
}

func TestMemoryStore_Rerank(t *testing.T) {
	Convey("Given three visible players", t, func() {
		ctx := context.Background()
		s := newStore(t)
		register(ctx, s, "a", 500)
		register(ctx, s, "b", 1500)
		register(ctx, s, "c", 1000)

		changed, err := s.Rerank(ctx, ranking.Compute)

		Convey("Then every player gets a dense position", func() {
			So(err, ShouldBeNil)
			So(changed, ShouldHaveLength, 3)
			all, _ := s.All(ctx)
			So(ranking.Validate(all), ShouldBeNil)
			b, _ := s.Get(ctx, "b")
			So(b.Rank(), ShouldEqual, 1)
		})

		Convey("When reranked again without writes", func() {
			again, err := s.Rerank(ctx, ranking.Compute)

			Convey("Then nothing changes", func() {
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
			})
		})

		Convey("When the leader is hidden", func() {
			_, _ = s.Upsert(ctx, "b", model.Patch{Visible: model.Bool(false)})
			changed, _ := s.Rerank(ctx, ranking.Compute)

			Convey("Then the others move up and the leader loses its position", func() {
				So(changed, ShouldHaveLength, 3)
				b, _ := s.Get(ctx, "b")
				c, _ := s.Get(ctx, "c")
				a, _ := s.Get(ctx, "a")
				So(b.RankPosition, ShouldBeNil)
				So(c.Rank(), ShouldEqual, 1)
				So(a.Rank(), ShouldEqual, 2)
				visible, _ := s.AllVisible(ctx)
				So(visible, ShouldHaveLength, 2)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Rerank(cctx, ranking.Compute)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	Convey("Given many writers and rerankers running together", t, func() {
		ctx := context.Background()
		s := newStore(t)
		const players = 40
		for i := 0; i < players; i++ {
			_, _, _ = s.Insert(ctx, fmt.Sprintf("p%02d", i))
		}

		var wg sync.WaitGroup
		for i := 0; i < players; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("p%02d", i)
				for n := 0; n < 20; n++ {
					_, _ = s.Upsert(ctx, id, model.Patch{PointsDelta: 10, Visible: model.Bool(i%4 != 0)})
				}
			}(i)
			go func() {
				defer wg.Done()
				_, _ = s.Rerank(ctx, ranking.Compute)
			}()
		}
		wg.Wait()
		_, err := s.Rerank(ctx, ranking.Compute)

		Convey("Then no increment is lost and the final ranking is valid", func() {
			So(err, ShouldBeNil)
			all, _ := s.All(ctx)
			for _, r := range all {
				So(r.Points, ShouldEqual, 200)
			}
			So(ranking.Validate(all), ShouldBeNil)
		})
	})
}
