package view_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/s3m-esports/standings/internal/adapters/directory"
	"github.com/s3m-esports/standings/internal/adapters/repository"
	"github.com/s3m-esports/standings/internal/app/view"
	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	"github.com/s3m-esports/standings/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type brokenDirectory struct{}

func (brokenDirectory) Lookup(context.Context, []string) (map[string]model.Profile, error) {
	return nil, errors.New("profiles unavailable")
}

type countingDirectory struct {
	directory.Directory
	calls int
}

func (c *countingDirectory) Lookup(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	c.calls++
	return c.Directory.Lookup(ctx, ids)
}

func put(ctx context.Context, s repository.Store, id string, patch model.Patch) {
	_, _, err := s.Insert(ctx, id)
	So(err, ShouldBeNil)
	_, err = s.Upsert(ctx, id, patch)
	So(err, ShouldBeNil)
}

func newStore(t *testing.T) *repository.MemoryStore {
	s := repository.NewMemoryStore(context.Background(), repository.WithMetricsUpdateInterval(0))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuilder_Build(t *testing.T) {
	Convey("Given three ranked players, one hidden player and a partial directory", t, func() {
		ctx := context.Background()
		store := newStore(t)
		put(ctx, store, "a", model.Patch{Points: model.Int64(500), Visible: model.Bool(true), Kills: model.Int64(10), Deaths: model.Int64(4)})
		put(ctx, store, "b", model.Patch{Points: model.Int64(1500), Visible: model.Bool(true), Wins: model.Int64(2), GamesPlayed: model.Int64(3)})
		put(ctx, store, "c", model.Patch{Points: model.Int64(1000), Visible: model.Bool(true), Kills: model.Int64(7)})
		put(ctx, store, "h", model.Patch{Points: model.Int64(9000)})
		_, err := store.Rerank(ctx, ranking.Compute)
		So(err, ShouldBeNil)

		dir := directory.NewMemory()
		So(dir.Put(ctx, model.Profile{PlayerID: "a", Username: "ace", AvatarURL: "https://cdn/a.png"}), ShouldBeNil)
		So(dir.Put(ctx, model.Profile{PlayerID: "b", Username: "bolt"}), ShouldBeNil)
		counting := &countingDirectory{Directory: dir}

		fixed := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		b := view.NewBuilder(store, counting, view.WithMaxLimit(2), view.WithClock(func() time.Time { return fixed }))

		Convey("When the first page is built", func() {
			board, err := b.Build(ctx, view.Page{})

			Convey("Then rows follow stored rank, capped at the max limit", func() {
				So(err, ShouldBeNil)
				So(board.Total, ShouldEqual, 3)
				So(board.Rows, ShouldHaveLength, 2)
				So(board.Rows[0].PlayerID, ShouldEqual, "b")
				So(board.Rows[1].PlayerID, ShouldEqual, "c")
				So(board.GeneratedAt, ShouldEqual, fixed)
				So(board.Stale, ShouldBeFalse)
			})

			Convey("And derived fields are filled in", func() {
				bolt := board.Rows[0]
				So(bolt.DisplayName, ShouldEqual, "bolt")
				So(bolt.Initials, ShouldEqual, "BO")
				So(bolt.Tier, ShouldEqual, scoring.TierGold)
				So(bolt.WinRate, ShouldEqual, 66.7)

				c := board.Rows[1]
				So(c.Placeholder, ShouldBeTrue)
				So(c.DisplayName, ShouldEqual, "Unknown player")
				So(c.Initials, ShouldEqual, "U")
				So(c.KD, ShouldEqual, 7)
				So(c.Tier, ShouldEqual, scoring.TierSilver)
			})

			Convey("And profiles are fetched in one batch", func() {
				So(counting.calls, ShouldEqual, 1)
			})
		})

		Convey("When the second page is built", func() {
			board, err := b.Build(ctx, view.Page{Limit: 2, Offset: 2})

			Convey("Then it holds the third player", func() {
				So(err, ShouldBeNil)
				So(board.Offset, ShouldEqual, 2)
				So(board.Rows, ShouldHaveLength, 1)
				So(board.Rows[0].PlayerID, ShouldEqual, "a")
				So(board.Rows[0].KD, ShouldEqual, 2.5)
				So(board.Rows[0].Tier, ShouldEqual, scoring.TierBronze)
			})
		})

		Convey("When the offset is past the end", func() {
			board, err := b.Build(ctx, view.Page{Offset: 50})
			So(err, ShouldBeNil)
			So(board.Rows, ShouldBeEmpty)
			So(board.Total, ShouldEqual, 3)
		})

		Convey("When a visible player has not been ranked yet", func() {
			_, err := store.Upsert(ctx, "h", model.Patch{Visible: model.Bool(true)})
			So(err, ShouldBeNil)
			board, err := view.NewBuilder(store, dir).Build(ctx, view.Page{})

			Convey("Then it sorts last and the board is marked stale", func() {
				So(err, ShouldBeNil)
				So(board.Stale, ShouldBeTrue)
				last := board.Rows[len(board.Rows)-1]
				So(last.PlayerID, ShouldEqual, "h")
				So(last.Stale, ShouldBeTrue)
				So(last.Rank, ShouldEqual, 0)
			})
		})

		Convey("When the directory is down", func() {
			board, err := view.NewBuilder(store, brokenDirectory{}).Build(ctx, view.Page{})

			Convey("Then every row degrades to a placeholder instead of failing", func() {
				So(err, ShouldBeNil)
				So(board.Rows, ShouldHaveLength, 3)
				for _, r := range board.Rows {
					So(r.Placeholder, ShouldBeTrue)
					So(r.DisplayName, ShouldEqual, scoring.PlaceholderName)
				}
			})
		})

		Convey("When a player card is built", func() {
			card, err := b.Player(ctx, "a")
			So(err, ShouldBeNil)
			So(card.Rank, ShouldEqual, 3)
			So(card.DisplayName, ShouldEqual, "ace")
			So(card.Visible, ShouldBeTrue)

			hidden, err := b.Player(ctx, "h")
			So(err, ShouldBeNil)
			So(hidden.Visible, ShouldBeFalse)
			So(hidden.Rank, ShouldEqual, 0)
			So(hidden.Tier, ShouldBeEmpty)

			_, err = b.Player(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the summary is built", func() {
			last := fixed.Add(-time.Minute)
			s, err := view.NewBuilder(store, dir, view.WithLastRecompute(func() *time.Time { return &last })).Summary(ctx)

			Convey("Then it aggregates every record", func() {
				So(err, ShouldBeNil)
				So(s.TotalPlayers, ShouldEqual, 4)
				So(s.VisiblePlayers, ShouldEqual, 3)
				So(s.HiddenPlayers, ShouldEqual, 1)
				So(s.AveragePoints, ShouldEqual, 3000)
				So(s.TotalGames, ShouldEqual, 3)
				So(s.Leader, ShouldNotBeNil)
				So(s.Leader.PlayerID, ShouldEqual, "b")
				So(*s.LastRecompute, ShouldEqual, last)
			})
		})
	})
}
