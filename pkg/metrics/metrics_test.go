package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "revstat")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every metric lands under the custom namespace", func() {
				manager.selfReviews.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_self_reviews_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering the same manager twice on one registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics on the duplicate registration", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording resolution metrics", func() {
			before := testutil.ToFloat64(globalManager.eventsResolved.WithLabelValues("reviewer"))
			RecordEventResolved("reviewer")
			RecordEventResolved("reviewer")

			Convey("Then the role counter increases", func() {
				after := testutil.ToFloat64(globalManager.eventsResolved.WithLabelValues("reviewer"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording data quality counters", func() {
			unmatched := testutil.ToFloat64(globalManager.unmatchedIdentities)
			unknown := testutil.ToFloat64(globalManager.unknownOrganizations)
			relays := testutil.ToFloat64(globalManager.unremappedRelays)

			RecordUnmatchedIdentity()
			RecordUnknownOrganization()
			RecordUnknownOrganization()
			RecordUnremappedRelay()

			Convey("Then each counter reflects its own events", func() {
				So(testutil.ToFloat64(globalManager.unmatchedIdentities)-unmatched, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.unknownOrganizations)-unknown, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.unremappedRelays)-relays, ShouldEqual, 1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateIdentityMapSize(12, 4)
			UpdateReviewCoverage("git", "v6.9", 0.75)
			UpdateQueueSize(3)
			UpdateWorkerCount(2)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.identityMapMailmap), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.identityMapCorpmap), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.reviewCoverage.WithLabelValues("git", "v6.9")), ShouldEqual, 0.75)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 2)
			})
		})

		Convey("When recording merges and latencies", func() {
			conflicts := testutil.ToFloat64(globalManager.mergeConflicts)

			So(func() {
				RecordMerge("applied")
				RecordMerge("noop")
				RecordMergeConflict()
				RecordStoreLockWait(3)
				RecordWindowProcessed("ok")
				RecordWindowLatency(12)
				RecordHTTPRequest("/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/leaderboard", "GET", "200", 1.5)
				RecordSelfReview()
				RecordExcludedReview()
				RecordCreditedReview()
				RecordEventDuplicate()
				RecordRelayRemap()
				RecordResolutionError()
				RecordIdentityMapLoadError()
			}, ShouldNotPanic)

			Convey("Then the conflict counter moved by one", func() {
				So(testutil.ToFloat64(globalManager.mergeConflicts)-conflicts, ShouldEqual, 1)
			})
		})

		Convey("When gathering from the custom registry", func() {
			RecordCreditedReview()
			families, err := GetRegistry().Gather()

			Convey("Then revstat metrics are exported", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
