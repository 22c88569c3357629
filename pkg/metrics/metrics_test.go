package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// value reads the current value of a single-series counter or gauge.
func value(c prometheus.Metric) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return -1
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

// registered reports whether the registry exports a family called name.
func registered(registry *prometheus.Registry, name string) bool {
	families, err := registry.Gather()
	if err != nil {
		return false
	}
	for _, f := range families {
		if f.GetName() == name {
			return true
		}
	}
	return false
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with defaults", func() {
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then its series are registered under the groupify namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.partitionsTotal.Inc()
				So(registered(registry, "groupify_service_partitions_total"), ShouldBeTrue)
			})
		})

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithDeviationBuckets([]float64{1, 10}),
				WithRosterBuckets([]float64{8, 64}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names and labels follow the options", func() {
				manager.jobsSubmitted.Inc()
				So(registered(registry, "test_unit_jobs_submitted_total"), ShouldBeTrue)
				So(manager.customLabels["env"], ShouldEqual, "test")
				So(manager.deviationBuckets, ShouldResemble, []float64{1, 10})
				So(manager.rosterBuckets, ShouldResemble, []float64{8, 64})
			})
		})

		Convey("When metrics are disabled", func() {
			manager := NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(registry))

			Convey("Then recording works but nothing is exported", func() {
				So(func() { manager.partitionsTotal.Inc() }, ShouldNotPanic)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldBeEmpty)
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithDeviationBuckets(nil),
				WithRosterBuckets(nil),
				WithCustomLabels(nil),
				WithPrometheusRegistry(nil),
			)

			Convey("Then the defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "groupify")
				So(manager.subsystem, ShouldEqual, "service")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.deviationBuckets, ShouldHaveLength, 9)
				So(manager.rosterBuckets, ShouldResemble, prometheus.ExponentialBuckets(4, 2, 10))
				So(manager.customLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a partition is recorded", func() {
			before := value(globalManager.partitionsTotal)
			tried := value(globalManager.swapsTried)
			accepted := value(globalManager.swapsAccepted)
			groups := value(globalManager.groupsCreated)

			RecordPartition(10, 2, 100, 7, 1.5, 1.2, 3.5)

			Convey("Then counters advance by the run's figures", func() {
				So(value(globalManager.partitionsTotal)-before, ShouldEqual, 1)
				So(value(globalManager.swapsTried)-tried, ShouldEqual, 100)
				So(value(globalManager.swapsAccepted)-accepted, ShouldEqual, 7)
				So(value(globalManager.groupsCreated)-groups, ShouldEqual, 2)
			})
		})

		Convey("When jobs finish", func() {
			done := value(globalManager.jobsFinished.WithLabelValues(OutcomeDone))
			RecordJobFinished(OutcomeDone)
			RecordJobFinished(OutcomeFailed)

			Convey("Then outcomes are counted separately", func() {
				So(value(globalManager.jobsFinished.WithLabelValues(OutcomeDone))-done, ShouldEqual, 1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateStoredRecords(3, 20, 5)
			UpdatePartitionsInFlight(2)
			UpdateQueueSize(4)

			Convey("Then they hold the last value", func() {
				So(value(globalManager.storedRooms), ShouldEqual, 3)
				So(value(globalManager.storedMembers), ShouldEqual, 20)
				So(value(globalManager.storedGroups), ShouldEqual, 5)
				So(value(globalManager.partitionsInFlight), ShouldEqual, 2)
				So(value(globalManager.queueSize), ShouldEqual, 4)
			})
		})

		Convey("When recording edge values", func() {
			So(func() {
				RecordHTTPRequest("", "", "200")
				RecordHTTPRequestDuration("/rooms/{room}", "GET", "200", 0)
				RecordErrorByComponent("", "")
				RecordErrorByType("invalid_group_size", "low")
				RecordErrorByEndpoint("/rooms", "POST", "invalid")
				RecordPartitionRejected("in_flight")
				RecordRepositoryQueryLatency(0)
				RecordRepositoryUpdateLatency(1e6)
				UpdateQueueCapacity(0)
				UpdateQueueUtilization(1.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(-1)
				UpdateWorkerCount(-1)
				UpdateWorkerActiveCount(0)
				RecordWorkerProcessingLatency(10)
				RecordWorkerError()
				RecordJobSubmitted()
				UpdateSystemMemoryUsage(1 << 30)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("The exported registry is the custom one", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		prevManager, prevRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = prevManager, prevRegistry }()

		Convey("When they are reconfigured with a namespace and labels", func() {
			Configure(
				WithNamespace("fleet"),
				WithCustomLabels(map[string]string{"site": "eu"}),
				WithDeviationBuckets([]float64{1, 2, 4}),
			)
			RecordJobSubmitted()

			Convey("Then recorders write to a fresh registry under the new names", func() {
				So(GetRegistry(), ShouldNotEqual, prevRegistry)
				So(registered(GetRegistry(), "fleet_service_jobs_submitted_total"), ShouldBeTrue)
				So(registered(GetRegistry(), "groupify_service_jobs_submitted_total"), ShouldBeFalse)
				So(globalManager.customLabels["site"], ShouldEqual, "eu")
				So(globalManager.deviationBuckets, ShouldResemble, []float64{1, 2, 4})
				So(value(globalManager.jobsSubmitted), ShouldEqual, 1)
			})
		})
	})
}

func TestConcurrentRecording(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := value(globalManager.queueEnqueueRate)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 100 {
					RecordQueueEnqueue()
					UpdateQueueSize(j)
					RecordHTTPRequest("/healthz", "GET", "200")
				}
			}()
		}
		wg.Wait()

		So(value(globalManager.queueEnqueueRate)-before, ShouldEqual, 1000)
	})
}
