// Package metrics provides Prometheus metrics for the revstat engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every revstat metric.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Resolution metrics - data quality of the identity tables
	eventsResolved        *prometheus.CounterVec
	unmatchedIdentities   prometheus.Counter
	unknownOrganizations  prometheus.Counter
	unremappedRelays      prometheus.Counter
	relayRemaps           prometheus.Counter
	eventsDuplicate       prometheus.Counter
	resolutionErrors      prometheus.Counter
	identityMapMailmap    prometheus.Gauge
	identityMapCorpmap    prometheus.Gauge
	identityMapLoadErrors prometheus.Counter

	// Scoring metrics
	selfReviews     prometheus.Counter
	excludedReviews prometheus.Counter
	creditedReviews prometheus.Counter
	reviewCoverage  *prometheus.GaugeVec

	// Window pipeline metrics
	windowsProcessed *prometheus.CounterVec
	windowLatency    prometheus.Histogram
	queueSize        prometheus.Gauge
	workerCount      prometheus.Gauge

	// Store metrics
	merges          *prometheus.CounterVec
	mergeConflicts  prometheus.Counter
	storeLockWaitMs prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "revstat",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.eventsResolved = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_resolved_total",
		Help:        "Total number of events resolved, by role",
		ConstLabels: m.constLabels,
	}, []string{"role"})
	m.unmatchedIdentities = m.counter("unmatched_identities_total",
		"Events whose raw address could not be parsed into an identity")
	m.unknownOrganizations = m.counter("unknown_organizations_total",
		"Events whose address matched no corpmap fragment")
	m.unremappedRelays = m.counter("unremapped_relays_total",
		"Relay events without an embedded identity override")
	m.relayRemaps = m.counter("relay_remaps_total",
		"Events resolved through a relay override")
	m.eventsDuplicate = m.counter("events_duplicate_total",
		"Events dropped because their event id was already seen in the window")
	m.resolutionErrors = m.counter("resolution_errors_total",
		"Resolver invocations that failed a precondition")
	m.identityMapMailmap = m.gauge("identity_map_mailmap_entries",
		"Number of mailmap entries in the loaded identity map")
	m.identityMapCorpmap = m.gauge("identity_map_corpmap_entries",
		"Number of corpmap fragments in the loaded identity map")
	m.identityMapLoadErrors = m.counter("identity_map_load_errors_total",
		"Identity map documents rejected at load time")

	m.selfReviews = m.counter("self_reviews_total",
		"Review events where reviewer and author are the same identity")
	m.excludedReviews = m.counter("excluded_reviews_total",
		"Review events from bots or unremapped relays")
	m.creditedReviews = m.counter("credited_reviews_total",
		"Review events credited as positive participation")
	m.reviewCoverage = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "review_coverage_ratio",
		Help:        "Share of committed subjects that received a credited review",
		ConstLabels: m.constLabels,
	}, []string{"producer", "release"})

	m.windowsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "windows_processed_total",
		Help:        "Release windows processed, by outcome",
		ConstLabels: m.constLabels,
	}, []string{"status"})
	m.windowLatency = m.histogram("window_latency_milliseconds",
		"Time spent resolving and aggregating one release window")
	m.queueSize = m.gauge("queue_size", "Release windows waiting in the queue")
	m.workerCount = m.gauge("worker_count", "Number of window workers")

	m.merges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "merges_total",
		Help:        "Stats document merges, by outcome",
		ConstLabels: m.constLabels,
	}, []string{"status"})
	m.mergeConflicts = m.counter("merge_conflicts_total",
		"Merges rejected because an existing window differs")
	m.storeLockWaitMs = m.histogram("store_lock_wait_milliseconds",
		"Time spent waiting for the stats document lock")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of inspector HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "Inspector HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordEventResolved counts one resolved event of the given role.
func RecordEventResolved(role string) {
	globalManager.eventsResolved.WithLabelValues(role).Inc()
}

// RecordUnmatchedIdentity counts an event resolved to the unmatched sentinel.
func RecordUnmatchedIdentity() {
	globalManager.unmatchedIdentities.Inc()
}

// RecordUnknownOrganization counts an event resolved to the unknown organization.
func RecordUnknownOrganization() {
	globalManager.unknownOrganizations.Inc()
}

// RecordUnremappedRelay counts a relay event without override.
func RecordUnremappedRelay() {
	globalManager.unremappedRelays.Inc()
}

// RecordRelayRemap counts an event resolved through its relay override.
func RecordRelayRemap() {
	globalManager.relayRemaps.Inc()
}

// RecordEventDuplicate counts a dropped duplicate event.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordResolutionError counts a resolver precondition failure.
func RecordResolutionError() {
	globalManager.resolutionErrors.Inc()
}

// UpdateIdentityMapSize records the size of the loaded identity map.
func UpdateIdentityMapSize(mailmap, corpmap int) {
	globalManager.identityMapMailmap.Set(float64(mailmap))
	globalManager.identityMapCorpmap.Set(float64(corpmap))
}

// RecordIdentityMapLoadError counts a rejected identity map document.
func RecordIdentityMapLoadError() {
	globalManager.identityMapLoadErrors.Inc()
}

// RecordSelfReview counts a self-review event.
func RecordSelfReview() {
	globalManager.selfReviews.Inc()
}

// RecordExcludedReview counts a bot or relay review event.
func RecordExcludedReview() {
	globalManager.excludedReviews.Inc()
}

// RecordCreditedReview counts a positive review event.
func RecordCreditedReview() {
	globalManager.creditedReviews.Inc()
}

// UpdateReviewCoverage records the coverage ratio of one window.
func UpdateReviewCoverage(producer, release string, ratio float64) {
	globalManager.reviewCoverage.WithLabelValues(producer, release).Set(ratio)
}

// RecordWindowProcessed counts a processed window; status is "ok" or "error".
func RecordWindowProcessed(status string) {
	globalManager.windowsProcessed.WithLabelValues(status).Inc()
}

// RecordWindowLatency observes the processing time of one window.
func RecordWindowLatency(latencyMs float64) {
	globalManager.windowLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the number of queued windows.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the number of window workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordMerge counts a merge; status is "applied", "noop" or "error".
func RecordMerge(status string) {
	globalManager.merges.WithLabelValues(status).Inc()
}

// RecordMergeConflict counts a rejected merge.
func RecordMergeConflict() {
	globalManager.mergeConflicts.Inc()
}

// RecordStoreLockWait observes the time spent acquiring the store lock.
func RecordStoreLockWait(waitMs float64) {
	globalManager.storeLockWaitMs.Observe(waitMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom registry for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
