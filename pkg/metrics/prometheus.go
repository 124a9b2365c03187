// Package metrics provides Prometheus metrics for the standings service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exported by the service. A disabled
// manager still registers its collectors but the package recorders skip it.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking
	mutations          *prometheus.CounterVec
	mutationLatency    *prometheus.HistogramVec
	recomputeRuns      prometheus.Counter
	recomputeFailures  prometheus.Counter
	recomputeRetries   prometheus.Counter
	recomputeDuration  prometheus.Histogram
	recomputeLastUnix  prometheus.Gauge
	rankChanges        prometheus.Counter
	playersTotal       prometheus.Gauge
	playersVisible     prometheus.Gauge
	duplicateRequests  prometheus.Counter
	storeLatency       *prometheus.HistogramVec
	viewBuilds         prometheus.Counter
	viewBuildPartial   prometheus.Counter
	viewBuildLatency   prometheus.Histogram
	notificationsTotal *prometheus.CounterVec

	// Change feed and sessions
	feedPublished    *prometheus.CounterVec
	feedDropped      *prometheus.CounterVec
	feedSubscribers  prometheus.Gauge
	sessionsActive   *prometheus.GaugeVec
	sessionRefreshes *prometheus.CounterVec

	// Cross-instance relay
	relayQueueCapacity prometheus.Gauge
	relayQueueSize     prometheus.Gauge
	relayPublished     prometheus.Counter
	relayReceived      prometheus.Counter
	relayErrors        *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "standings",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.mutations = auto.NewCounterVec(m.counterOpts("mutations_total",
		"Mutation gateway calls by operation and outcome"), []string{"operation", "outcome"})
	m.mutationLatency = auto.NewHistogramVec(m.histogramOpts("mutation_latency_milliseconds",
		"End-to-end mutation latency including recompute", nil), []string{"operation"})
	m.recomputeRuns = auto.NewCounter(m.counterOpts("recompute_runs_total",
		"Rank recompute transactions committed"))
	m.recomputeFailures = auto.NewCounter(m.counterOpts("recompute_failures_total",
		"Rank recompute attempts that failed"))
	m.recomputeRetries = auto.NewCounter(m.counterOpts("recompute_retries_total",
		"Rank recompute retries after a failed attempt"))
	m.recomputeDuration = auto.NewHistogram(m.histogramOpts("recompute_duration_milliseconds",
		"Rank recompute transaction duration", nil))
	m.recomputeLastUnix = auto.NewGauge(m.gaugeOpts("recompute_last_unix",
		"Unix timestamp of the last successful recompute"))
	m.rankChanges = auto.NewCounter(m.counterOpts("rank_changes_total",
		"Players whose rank position changed during a recompute"))
	m.playersTotal = auto.NewGauge(m.gaugeOpts("players_total", "Score records in the store"))
	m.playersVisible = auto.NewGauge(m.gaugeOpts("players_visible", "Score records visible on the public board"))
	m.duplicateRequests = auto.NewCounter(m.counterOpts("duplicate_requests_total",
		"Point grants ignored because their request id was already applied"))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Score store operation latency", nil), []string{"driver", "operation"})
	m.viewBuilds = auto.NewCounter(m.counterOpts("view_builds_total", "Leaderboard views built"))
	m.viewBuildPartial = auto.NewCounter(m.counterOpts("view_build_partial_total",
		"Rows rendered with a placeholder identity because the profile lookup missed"))
	m.viewBuildLatency = auto.NewHistogram(m.histogramOpts("view_build_latency_milliseconds",
		"Leaderboard view build latency", nil))
	m.notificationsTotal = auto.NewCounterVec(m.counterOpts("notifications_total",
		"Inbox operations by kind"), []string{"operation"})

	m.feedPublished = auto.NewCounterVec(m.counterOpts("feed_published_total",
		"Change events published by topic kind"), []string{"topic"})
	m.feedDropped = auto.NewCounterVec(m.counterOpts("feed_dropped_total",
		"Change events dropped because a subscriber buffer was full"), []string{"topic"})
	m.feedSubscribers = auto.NewGauge(m.gaugeOpts("feed_subscribers", "Active change feed subscriptions"))
	m.sessionsActive = auto.NewGaugeVec(m.gaugeOpts("sessions_active",
		"Open viewer sessions by kind"), []string{"kind"})
	m.sessionRefreshes = auto.NewCounterVec(m.counterOpts("session_refreshes_total",
		"View reloads performed by viewer sessions"), []string{"kind", "outcome"})

	m.relayQueueCapacity = auto.NewGauge(m.gaugeOpts("relay_queue_capacity", "Outbound relay queue capacity"))
	m.relayQueueSize = auto.NewGauge(m.gaugeOpts("relay_queue_size", "Outbound relay queue length"))
	m.relayPublished = auto.NewCounter(m.counterOpts("relay_published_total",
		"Change events relayed to other instances"))
	m.relayReceived = auto.NewCounter(m.counterOpts("relay_received_total",
		"Change events received from other instances"))
	m.relayErrors = auto.NewCounterVec(m.counterOpts("relay_errors_total",
		"Relay failures by reason"), []string{"reason"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of operations that resulted in errors", nil), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordMutation counts a gateway call and observes its latency.
func RecordMutation(operation, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.mutations.WithLabelValues(operation, outcome).Inc()
	globalManager.mutationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRecompute records a committed recompute and the number of rank changes it produced.
func RecordRecompute(durationMs float64, changed int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recomputeRuns.Inc()
	globalManager.recomputeDuration.Observe(durationMs)
	globalManager.recomputeLastUnix.Set(float64(time.Now().Unix()))
	globalManager.rankChanges.Add(float64(changed))
}

// RecordRecomputeFailure increments the failed recompute counter.
func RecordRecomputeFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.recomputeFailures.Inc()
}

// RecordRecomputeRetry increments the recompute retry counter.
func RecordRecomputeRetry() {
	if !globalManager.enabled {
		return
	}
	globalManager.recomputeRetries.Inc()
}

// UpdatePlayerCounts sets the total and visible player gauges.
func UpdatePlayerCounts(total, visible int) {
	if !globalManager.enabled {
		return
	}
	globalManager.playersTotal.Set(float64(total))
	globalManager.playersVisible.Set(float64(visible))
}

// RecordDuplicateRequest counts an ignored duplicate point grant.
func RecordDuplicateRequest() {
	if !globalManager.enabled {
		return
	}
	globalManager.duplicateRequests.Inc()
}

// RecordStoreLatency observes a store operation latency.
func RecordStoreLatency(driver, operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(driver, operation).Observe(latencyMs)
}

// RecordViewBuild records a view build, its latency and the number of placeholder rows.
func RecordViewBuild(latencyMs float64, placeholders int) {
	if !globalManager.enabled {
		return
	}
	globalManager.viewBuilds.Inc()
	globalManager.viewBuildLatency.Observe(latencyMs)
	if placeholders > 0 {
		globalManager.viewBuildPartial.Add(float64(placeholders))
	}
}

// RecordNotification counts an inbox operation.
func RecordNotification(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.notificationsTotal.WithLabelValues(operation).Inc()
}

// RecordFeedPublish counts a published change event.
func RecordFeedPublish(topic string) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedPublished.WithLabelValues(topic).Inc()
}

// RecordFeedDrop counts a change event dropped for a slow subscriber.
func RecordFeedDrop(topic string) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedDropped.WithLabelValues(topic).Inc()
}

// AddFeedSubscribers adjusts the active subscription gauge by delta.
func AddFeedSubscribers(delta int) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedSubscribers.Add(float64(delta))
}

// AddActiveSessions adjusts the open session gauge for kind by delta.
func AddActiveSessions(kind string, delta int) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionsActive.WithLabelValues(kind).Add(float64(delta))
}

// RecordSessionRefresh counts a session reload.
func RecordSessionRefresh(kind, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sessionRefreshes.WithLabelValues(kind, outcome).Inc()
}

// UpdateRelayQueue sets the outbound relay queue gauges.
func UpdateRelayQueue(size, capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.relayQueueSize.Set(float64(size))
	globalManager.relayQueueCapacity.Set(float64(capacity))
}

// RecordRelayPublished counts an event relayed to other instances.
func RecordRelayPublished() {
	if !globalManager.enabled {
		return
	}
	globalManager.relayPublished.Inc()
}

// RecordRelayReceived counts an event received from another instance.
func RecordRelayReceived() {
	if !globalManager.enabled {
		return
	}
	globalManager.relayReceived.Inc()
}

// RecordRelayError counts a relay failure.
func RecordRelayError(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.relayErrors.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval reports how often gauge updaters should run.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns the elapsed milliseconds since start as a float.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
