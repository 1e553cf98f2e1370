// Package metrics provides Prometheus metrics for the composer control service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the composer service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Toggle pipeline
	togglesTotal        *prometheus.CounterVec
	toggleLatency       prometheus.Histogram
	partialFailures     prometheus.Counter
	historyAppendErrors prometheus.Counter
	cacheRefreshes      *prometheus.CounterVec
	cacheRefreshErrors  prometheus.Counter

	// Alert pipeline
	alertsDelivered    prometheus.Counter
	alertsFiltered     prometheus.Counter
	alertsEvicted      prometheus.Counter
	alertQueueDepth    prometheus.Gauge
	subscriptionErrors prometheus.Counter
	subscriptionActive prometheus.Gauge

	// Document store
	storeOpLatency *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "composer",
		subsystem:        "control",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.togglesTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "toggles_total",
			Help:      "Total number of cue toggles by channel and result",
		},
		[]string{"channel", "result"},
	)

	m.toggleLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "toggle_latency_milliseconds",
		Help:      "Histogram of end-to-end toggle latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.partialFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "toggle_partial_failures_total",
		Help:      "Toggles that committed the control flag but aborted before the ticker fan-out",
	})

	m.historyAppendErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_append_errors_total",
		Help:      "Best-effort history appends that failed and were only logged",
	})

	m.cacheRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "state_cache_refreshes_total",
			Help:      "Channel state cache refreshes by channel",
		},
		[]string{"channel"},
	)

	m.cacheRefreshErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "state_cache_refresh_errors_total",
		Help:      "Channel state cache refreshes that failed",
	})

	m.alertsDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_delivered_total",
		Help:      "Allow-listed action events delivered to the alert queue",
	})

	m.alertsFiltered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_filtered_total",
		Help:      "Action events discarded by the allow-list filter",
	})

	m.alertsEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_evicted_total",
		Help:      "Alerts evicted from the bounded queue by capacity pressure",
	})

	m.alertQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_queue_depth",
		Help:      "Current number of alerts held in the bounded queue",
	})

	m.subscriptionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscription_errors_total",
		Help:      "Match record subscriptions terminated by a stream error",
	})

	m.subscriptionActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscription_active",
		Help:      "Whether a match record subscription is currently attached (0 or 1)",
	})

	m.storeOpLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_op_latency_milliseconds",
			Help:      "Document store operation latency in milliseconds by operation",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.storeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_errors_total",
			Help:      "Document store operation errors by operation",
		},
		[]string{"op"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers on the global manager.

// RecordToggle records a completed toggle attempt.
func RecordToggle(channel, result string) {
	globalManager.togglesTotal.WithLabelValues(channel, result).Inc()
}

// RecordToggleLatency records end-to-end toggle latency.
func RecordToggleLatency(latencyMs float64) {
	globalManager.toggleLatency.Observe(latencyMs)
}

// RecordPartialFailure records a toggle that left records out of sync.
func RecordPartialFailure() {
	globalManager.partialFailures.Inc()
}

// RecordHistoryAppendError records a dropped history entry.
func RecordHistoryAppendError() {
	globalManager.historyAppendErrors.Inc()
}

// RecordCacheRefresh records a channel state cache refresh.
func RecordCacheRefresh(channel string) {
	globalManager.cacheRefreshes.WithLabelValues(channel).Inc()
}

// RecordCacheRefreshError records a failed state cache refresh.
func RecordCacheRefreshError() {
	globalManager.cacheRefreshErrors.Inc()
}

// RecordAlertDelivered records an accepted action event.
func RecordAlertDelivered() {
	globalManager.alertsDelivered.Inc()
}

// RecordAlertFiltered records an action event dropped by the allow-list.
func RecordAlertFiltered() {
	globalManager.alertsFiltered.Inc()
}

// RecordAlertEvicted records an alert dropped by capacity eviction.
func RecordAlertEvicted() {
	globalManager.alertsEvicted.Inc()
}

// UpdateAlertQueueDepth updates the alert queue depth gauge.
func UpdateAlertQueueDepth(depth int) {
	globalManager.alertQueueDepth.Set(float64(depth))
}

// RecordSubscriptionError records a terminated subscription stream.
func RecordSubscriptionError() {
	globalManager.subscriptionErrors.Inc()
}

// UpdateSubscriptionActive updates the attached-subscription gauge.
func UpdateSubscriptionActive(active bool) {
	if active {
		globalManager.subscriptionActive.Set(1)
	} else {
		globalManager.subscriptionActive.Set(0)
	}
}

// RecordStoreOp records a document store operation latency.
func RecordStoreOp(op string, latencyMs float64) {
	globalManager.storeOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError records a document store operation error.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
