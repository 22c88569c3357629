// Package metrics provides Prometheus metrics for the groupify service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcome label values.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// Manager manages all Prometheus metrics for the groupify service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	deviationBuckets []float64
	rosterBuckets    []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core grouping metrics
	partitionsTotal     prometheus.Counter
	partitionLatency    prometheus.Histogram
	partitionRosterSize prometheus.Histogram
	seededDeviation     prometheus.Histogram
	partitionDeviation  prometheus.Histogram
	groupsCreated       prometheus.Counter
	swapsTried          prometheus.Counter
	swapsAccepted       prometheus.Counter
	partitionRejections *prometheus.CounterVec
	partitionsInFlight  prometheus.Gauge

	// Job lifecycle
	jobsSubmitted prometheus.Counter
	jobsFinished  *prometheus.CounterVec

	// Stored records
	storedRooms   prometheus.Gauge
	storedMembers prometheus.Gauge
	storedGroups  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "groupify",
		subsystem:        "service",
		histogramBuckets: prometheus.DefBuckets,
		deviationBuckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		rosterBuckets:    prometheus.ExponentialBuckets(4, 2, 10),
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return m.factory().NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return m.factory().NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return m.factory().NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return m.factory().NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
		Buckets: buckets,
	})
}

// factory registers on the configured registry. Disabled metrics are created
// unregistered.
func (m *Manager) factory() promauto.Factory {
	if !m.enabled {
		return promauto.With(nil)
	}
	return promauto.With(m.registry)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Core grouping metrics
	m.partitionsTotal = m.counter("partitions_total", "Total number of rosters partitioned into groups")
	m.partitionLatency = m.histogram("partition_latency_milliseconds",
		"Time spent preparing, seeding and refining one roster", m.histogramBuckets)
	m.partitionRosterSize = m.histogram("partition_roster_size", "Number of members per partitioned roster",
		m.rosterBuckets)
	m.seededDeviation = m.histogram("partition_seeded_deviation",
		"Total deviation of group averages from the roster average after seeding", m.deviationBuckets)
	m.partitionDeviation = m.histogram("partition_deviation",
		"Total deviation of group averages from the roster average after refinement", m.deviationBuckets)
	m.groupsCreated = m.counter("groups_created_total", "Total number of groups produced by partitioning")
	m.swapsTried = m.counter("refinement_swaps_tried_total", "Total number of swaps tried during refinement")
	m.swapsAccepted = m.counter("refinement_swaps_accepted_total", "Total number of swaps kept during refinement")
	m.partitionRejections = m.counterVec("partition_rejections_total",
		"Partition requests rejected before running, by reason", "reason")
	m.partitionsInFlight = m.gauge("partitions_in_flight", "Rooms currently being partitioned")

	// Job lifecycle
	m.jobsSubmitted = m.counter("jobs_submitted_total", "Total number of partition jobs accepted")
	m.jobsFinished = m.counterVec("jobs_finished_total", "Total number of partition jobs finished, by outcome", "outcome")

	// Stored records
	m.storedRooms = m.gauge("stored_rooms", "Number of rooms in the store")
	m.storedMembers = m.gauge("stored_members", "Number of members in the store")
	m.storedGroups = m.gauge("stored_groups", "Number of groups in the store")

	// HTTP
	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.factory().NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	// Repository
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds",
		"Latency of repository writes in milliseconds", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100})
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Latency of repository reads in milliseconds", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100})

	// Queue
	m.queueSize = m.gauge("queue_size", "Current number of pending partition jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of pending partition jobs")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Pending jobs as a ratio of capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of jobs rejected by a full or closed queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time a job waits in the queue in milliseconds", m.histogramBuckets)

	// Workers
	m.workerCount = m.gauge("worker_count", "Number of started workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently running a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time a worker spends on one job in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of jobs that failed in a worker")

	// Errors
	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and error type", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint, method and error type", "endpoint", "method", "error_type")

	// System
	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordPartition records one completed partition run.
func RecordPartition(rosterSize, groups, trials, accepted int, seeded, final, latencyMs float64) {
	globalManager.partitionsTotal.Inc()
	globalManager.groupsCreated.Add(float64(groups))
	globalManager.partitionRosterSize.Observe(float64(rosterSize))
	globalManager.seededDeviation.Observe(seeded)
	globalManager.partitionDeviation.Observe(final)
	globalManager.partitionLatency.Observe(latencyMs)
	globalManager.swapsTried.Add(float64(trials))
	globalManager.swapsAccepted.Add(float64(accepted))
}

// RecordPartitionRejected counts a partition request refused for reason.
func RecordPartitionRejected(reason string) {
	globalManager.partitionRejections.WithLabelValues(reason).Inc()
}

// UpdatePartitionsInFlight sets the number of rooms being partitioned.
func UpdatePartitionsInFlight(count int64) {
	globalManager.partitionsInFlight.Set(float64(count))
}

// RecordJobSubmitted increments the accepted jobs counter.
func RecordJobSubmitted() {
	globalManager.jobsSubmitted.Inc()
}

// RecordJobFinished counts a finished job by outcome.
func RecordJobFinished(outcome string) {
	globalManager.jobsFinished.WithLabelValues(outcome).Inc()
}

// UpdateStoredRecords sets the stored record gauges.
func UpdateStoredRecords(rooms, members, groups int) {
	globalManager.storedRooms.Set(float64(rooms))
	globalManager.storedMembers.Set(float64(members))
	globalManager.storedGroups.Set(float64(groups))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue errors counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a job waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global metrics are exported from.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Configure rebuilds the global metrics with opts on a fresh registry.
// Series recorded before the call are dropped. Call it once at startup,
// before anything records or serves /metrics.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts[:len(opts):len(opts)], WithPrometheusRegistry(registry))...)
	customRegistry = registry
}
