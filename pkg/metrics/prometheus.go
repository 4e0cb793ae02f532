// Package metrics provides Prometheus metrics for the overlay service and its clients.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the overlay binaries.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Store
	storeReplaces         prometheus.Counter
	storeValidationErrors prometheus.Counter
	storeRevision         prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// Overlay polling
	pollResults           *prometheus.CounterVec
	pollLatency           *prometheus.HistogramVec
	staleResponsesDropped *prometheus.CounterVec

	// Celebrations and effects
	celebrationTriggers *prometheus.CounterVec
	activeParticles     *prometheus.GaugeVec

	// Control panel
	cacheOperations *prometheus.CounterVec
	panelRequests   *prometheus.CounterVec

	// Voice
	voicePhrases    *prometheus.CounterVec
	voiceRestarts   prometheus.Counter
	phraseQueueSize prometheus.Gauge

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
		namespace:        "overlay",
		subsystem:        "stream",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.storeReplaces = auto.NewCounter(m.counterOpts("store_replaces_total", "Accepted record replacements"))
	m.storeValidationErrors = auto.NewCounter(m.counterOpts("store_validation_errors_total", "Rejected record replacements"))
	m.storeRevision = auto.NewGauge(m.gaugeOpts("store_revision", "Current record revision"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and error type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)

	m.pollResults = auto.NewCounterVec(
		m.counterOpts("poll_results_total", "Overlay poll cycles by overlay and result"),
		[]string{"overlay", "result"},
	)
	m.pollLatency = auto.NewHistogramVec(
		m.histogramOpts("poll_latency_milliseconds", "Overlay fetch latency in milliseconds", m.histogramBuckets),
		[]string{"overlay"},
	)
	m.staleResponsesDropped = auto.NewCounterVec(
		m.counterOpts("stale_responses_dropped_total", "Fetched records dispatched before the applied one"),
		[]string{"overlay"},
	)

	m.celebrationTriggers = auto.NewCounterVec(
		m.counterOpts("celebration_triggers_total", "Celebration trigger requests by source, effect and result"),
		[]string{"source", "effect", "result"},
	)
	m.activeParticles = auto.NewGaugeVec(
		m.gaugeOpts("active_particles", "Particles currently animating per effect"),
		[]string{"effect"},
	)

	m.cacheOperations = auto.NewCounterVec(
		m.counterOpts("cache_operations_total", "Local cache operations by op and result"),
		[]string{"op", "result"},
	)
	m.panelRequests = auto.NewCounterVec(
		m.counterOpts("panel_requests_total", "Control panel submit/trigger outcomes"),
		[]string{"action", "status"},
	)

	m.voicePhrases = auto.NewCounterVec(
		m.counterOpts("voice_phrases_total", "Recognized phrases by outcome"),
		[]string{"result"},
	)
	m.voiceRestarts = auto.NewCounter(m.counterOpts("voice_engine_restarts_total", "Recognition engine restarts"))
	m.phraseQueueSize = auto.NewGauge(m.gaugeOpts("phrase_queue_size", "Phrases waiting for dispatch"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// Store metrics.

// RecordStoreReplace counts an accepted replace and publishes the new revision.
func RecordStoreReplace(revision uint64) {
	globalManager.storeReplaces.Inc()
	globalManager.storeRevision.Set(float64(revision))
}

// RecordStoreValidationError counts a rejected replace.
func RecordStoreValidationError() {
	globalManager.storeValidationErrors.Inc()
}

// HTTP metrics.

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// Overlay metrics.

// RecordPoll counts one poll cycle outcome ("ok", "error", "cancelled").
func RecordPoll(overlay, result string) {
	globalManager.pollResults.WithLabelValues(overlay, result).Inc()
}

// RecordPollLatency records the fetch latency of one poll cycle.
func RecordPollLatency(overlay string, latencyMs float64) {
	globalManager.pollLatency.WithLabelValues(overlay).Observe(latencyMs)
}

// RecordStaleResponseDropped counts a response overtaken by a later poll.
func RecordStaleResponseDropped(overlay string) {
	globalManager.staleResponsesDropped.WithLabelValues(overlay).Inc()
}

// RecordCelebrationTrigger counts a trigger POST by source ("panel", "voice", "burndown").
func RecordCelebrationTrigger(source, effect string, ok bool) {
	globalManager.celebrationTriggers.WithLabelValues(source, effect, strconv.FormatBool(ok)).Inc()
}

// UpdateActiveParticles publishes the live particle count of one effect.
func UpdateActiveParticles(effect string, count int) {
	globalManager.activeParticles.WithLabelValues(effect).Set(float64(count))
}

// Panel metrics.

// RecordCacheOperation counts a local cache op ("load", "save", "remove") by result.
func RecordCacheOperation(op, result string) {
	globalManager.cacheOperations.WithLabelValues(op, result).Inc()
}

// RecordPanelRequest counts a submit/trigger outcome.
func RecordPanelRequest(action, status string) {
	globalManager.panelRequests.WithLabelValues(action, status).Inc()
}

// Voice metrics.

// RecordVoicePhrase counts a phrase by outcome ("matched", "ignored", "dropped").
func RecordVoicePhrase(result string) {
	globalManager.voicePhrases.WithLabelValues(result).Inc()
}

// RecordVoiceRestart counts an automatic engine restart.
func RecordVoiceRestart() {
	globalManager.voiceRestarts.Inc()
}

// UpdatePhraseQueueSize publishes the phrase queue backlog.
func UpdatePhraseQueueSize(size int) {
	globalManager.phraseQueueSize.Set(float64(size))
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
