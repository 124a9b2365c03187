package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/s3m-esports/standings/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When a request id is new", func() {
			seen := d.SeenAndRecord(ctx, dedupe.Key("p1", "req-1"))

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same request id arrives twice", func() {
			d.SeenAndRecord(ctx, dedupe.Key("p1", "req-1"))
			seen := d.SeenAndRecord(ctx, dedupe.Key("p1", "req-1"))

			Convey("Then the second one is reported as seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same request id targets another player", func() {
			d.SeenAndRecord(ctx, dedupe.Key("p1", "req-1"))

			Convey("Then it is independent", func() {
				So(d.SeenAndRecord(ctx, dedupe.Key("p2", "req-1")), ShouldBeFalse)
			})
		})

		Convey("When more ids than the bound are recorded", func() {
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("id-%d", i))
			}

			Convey("Then the oldest is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "id-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "id-0"), ShouldBeFalse)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "id-x")
			d.Unrecord(ctx, "id-x")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "id-x"), ShouldBeFalse)
			})
		})
	})
}

func TestInMemoryDeduper_Unbounded(t *testing.T) {
	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 100; i++ {
			d.SeenAndRecord(context.Background(), fmt.Sprintf("id-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 100)
		})
	})
}

func TestInMemoryDeduper_Concurrent(t *testing.T) {
	Convey("Given many goroutines racing on the same id", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(context.Background(), "shared") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one caller records it", func() {
			So(fresh.Load(), ShouldEqual, 1)
		})
	})
}
