package ranking_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/s3m-esports/standings/internal/domain/model"
	"github.com/s3m-esports/standings/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, points int64, visible bool) model.ScoreRecord {
	return model.ScoreRecord{PlayerID: id, Points: points, Visible: visible, LastUpdated: epoch}
}

// withPositions copies records and stores the computed positions on them.
func withPositions(records []model.ScoreRecord) []model.ScoreRecord {
	pos := ranking.Positions(ranking.Compute(records))
	out := make([]model.ScoreRecord, len(records))
	for i, r := range records {
		if p, ok := pos[r.PlayerID]; ok {
			p := p
			r.RankPosition = &p
		} else {
			r.RankPosition = nil
		}
		out[i] = r
	}
	return out
}

func TestCompute(t *testing.T) {
	Convey("Given three visible players with 500, 1500 and 1000 points", t, func() {
		records := []model.ScoreRecord{
			record("a", 500, true),
			record("b", 1500, true),
			record("c", 1000, true),
		}

		Convey("When ranks are computed", func() {
			pos := ranking.Positions(ranking.Compute(records))

			Convey("Then the ranks are 3, 1 and 2", func() {
				So(pos["a"], ShouldEqual, 3)
				So(pos["b"], ShouldEqual, 1)
				So(pos["c"], ShouldEqual, 2)
			})
		})

		Convey("When a fourth player with 750 points becomes visible", func() {
			records = append(records, record("x", 750, true))
			ordered := ranking.Order(records)

			Convey("Then the order is 1500, 1000, 750, 500", func() {
				var points []int64
				for _, r := range ordered {
					points = append(points, r.Points)
				}
				So(points, ShouldResemble, []int64{1500, 1000, 750, 500})
				So(ranking.Positions(ranking.Compute(records))["x"], ShouldEqual, 3)
			})
		})

		Convey("When the leader is hidden", func() {
			records[1].Visible = false
			pos := ranking.Positions(ranking.Compute(records))

			Convey("Then the remaining players re-densify to 1 and 2", func() {
				So(pos, ShouldResemble, map[string]int{"c": 1, "a": 2})
				_, ranked := pos["b"]
				So(ranked, ShouldBeFalse)
			})
		})

		Convey("When computed twice", func() {
			first := ranking.Compute(records)
			second := ranking.Compute(records)

			Convey("Then the assignments are identical", func() {
				So(second, ShouldResemble, first)
			})
		})
	})

	Convey("Given players tied on points", t, func() {
		early := record("zed", 900, true)
		late := record("amy", 900, true)
		late.LastUpdated = epoch.Add(time.Minute)
		sameTimeA := record("bob", 400, true)
		sameTimeB := record("ann", 400, true)

		pos := ranking.Positions(ranking.Compute([]model.ScoreRecord{late, sameTimeA, early, sameTimeB}))

		Convey("Then the earlier update ranks higher", func() {
			So(pos["zed"], ShouldEqual, 1)
			So(pos["amy"], ShouldEqual, 2)
		})

		Convey("And equal timestamps fall back to player id", func() {
			So(pos["ann"], ShouldEqual, 3)
			So(pos["bob"], ShouldEqual, 4)
		})
	})

	Convey("Given no visible players", t, func() {
		Convey("Then no assignments are produced", func() {
			So(ranking.Compute([]model.ScoreRecord{record("a", 10, false)}), ShouldBeEmpty)
			So(ranking.Compute(nil), ShouldBeEmpty)
		})
	})
}

func TestComputeProperties(t *testing.T) {
	Convey("Given random populations", t, func() {
		rng := rand.New(rand.NewSource(7))

		for round := 0; round < 50; round++ {
			n := rng.Intn(40)
			records := make([]model.ScoreRecord, n)
			for i := range records {
				records[i] = model.ScoreRecord{
					PlayerID:    fmt.Sprintf("p%03d", i),
					Points:      int64(rng.Intn(10) * 100),
					Visible:     rng.Intn(3) > 0,
					LastUpdated: epoch.Add(time.Duration(rng.Intn(5)) * time.Second),
				}
			}
			ranked := withPositions(records)

			So(ranking.Validate(ranked), ShouldBeNil)

			for _, a := range ranked {
				for _, b := range ranked {
					if a.Visible && b.Visible && a.Points > b.Points {
						So(*a.RankPosition, ShouldBeLessThan, *b.RankPosition)
					}
				}
			}
		}
	})
}

func TestValidate(t *testing.T) {
	Convey("Given stored positions", t, func() {
		one, two, three := 1, 2, 3

		Convey("When a position is held twice", func() {
			a := record("a", 10, true)
			b := record("b", 5, true)
			a.RankPosition, b.RankPosition = &one, &one
			So(errors.Is(ranking.Validate([]model.ScoreRecord{a, b}), ranking.ErrDuplicate), ShouldBeTrue)
		})

		Convey("When a position is skipped", func() {
			a := record("a", 10, true)
			b := record("b", 5, true)
			a.RankPosition, b.RankPosition = &one, &three
			So(errors.Is(ranking.Validate([]model.ScoreRecord{a, b}), ranking.ErrGap), ShouldBeTrue)
		})

		Convey("When a visible record is unranked", func() {
			a := record("a", 10, true)
			So(errors.Is(ranking.Validate([]model.ScoreRecord{a}), ranking.ErrGap), ShouldBeTrue)
		})

		Convey("When positions contradict points", func() {
			a := record("a", 10, true)
			b := record("b", 50, true)
			a.RankPosition, b.RankPosition = &one, &two
			So(errors.Is(ranking.Validate([]model.ScoreRecord{a, b}), ranking.ErrOrder), ShouldBeTrue)
		})

		Convey("When a hidden record keeps a position", func() {
			a := record("a", 10, false)
			a.RankPosition = &one
			So(errors.Is(ranking.Validate([]model.ScoreRecord{a}), ranking.ErrHiddenRanked), ShouldBeTrue)
		})
	})
}
