package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the standings namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "standings")
				So(manager.subsystem, ShouldEqual, "leaderboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.recomputeRuns.Inc()

			Convey("Then collectors should carry the custom names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_recompute_runs_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 10*time.Second)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "standings")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ranking metrics", func() {
			before := testutil.ToFloat64(globalManager.rankChanges)
			RecordRecompute(1.5, 3)
			RecordRecomputeFailure()
			RecordRecomputeRetry()
			RecordMutation("set_stats", "ok", 2)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.rankChanges), ShouldEqual, before+3)
				So(testutil.ToFloat64(globalManager.recomputeLastUnix), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When adjusting feed subscriptions", func() {
			before := testutil.ToFloat64(globalManager.feedSubscribers)
			AddFeedSubscribers(2)
			AddFeedSubscribers(-1)

			Convey("Then the gauge should reflect the net change", func() {
				So(testutil.ToFloat64(globalManager.feedSubscribers), ShouldEqual, before+1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				UpdatePlayerCounts(10, 4)
				RecordDuplicateRequest()
				RecordStoreLatency("memory", "upsert", 0.2)
				RecordViewBuild(1.2, 1)
				RecordNotification("send")
				RecordFeedPublish("leaderboard")
				RecordFeedDrop("player")
				AddActiveSessions("leaderboard", 1)
				RecordSessionRefresh("leaderboard", "ok")
				UpdateRelayQueue(1, 10)
				RecordRelayPublished()
				RecordRelayReceived()
				RecordRelayError("publish")
				RecordHTTPRequest("leaderboard", "GET", "200")
				RecordHTTPRequestDuration("leaderboard", "GET", "200", 5.0)
				RecordErrorByComponent("gateway", "not_found")
				RecordErrorByType("not_found", "medium")
				RecordErrorByEndpoint("leaderboard", "GET", "not_found")
				RecordErrorLatency("http", "client_error", 3)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a global manager created with metrics disabled", t, func() {
		saved := globalManager
		globalManager = NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		defer func() { globalManager = saved }()

		RecordRecompute(2, 5)
		RecordRecomputeFailure()
		RecordMutation("set_stats", "ok", 1)
		AddFeedSubscribers(3)
		UpdatePlayerCounts(10, 4)
		RecordHTTPRequest("leaderboard", "GET", "200")

		Convey("Then recorders leave every collector untouched", func() {
			So(testutil.ToFloat64(globalManager.recomputeRuns), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.rankChanges), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.recomputeFailures), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.feedSubscribers), ShouldEqual, 0)
			So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, 0)
			So(testutil.CollectAndCount(globalManager.mutations), ShouldEqual, 0)
			So(testutil.CollectAndCount(globalManager.httpRequests), ShouldEqual, 0)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordFeedPublish("leaderboard")
		families, err := GetRegistry().Gather()

		Convey("Then it should expose standings metrics only", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "standings_"), ShouldBeTrue)
			}
		})
	})
}

func TestSince(t *testing.T) {
	Convey("Given a start time in the past", t, func() {
		start := time.Now().Add(-5 * time.Millisecond)

		Convey("Then Since should report at least the elapsed milliseconds", func() {
			So(Since(start), ShouldBeGreaterThanOrEqualTo, 5)
		})
	})
}
