// Package metrics provides Prometheus metrics for the RallyLens analysis service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the RallyLens service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Core Business Metrics - what the analysis pipeline produces
	analysesSubmitted prometheus.Counter
	analysesDuplicate prometheus.Counter
	analysesCompleted prometheus.Counter
	analysesFailed    *prometheus.CounterVec
	framesSampled     prometheus.Counter
	posesEstimated    prometheus.Counter
	posesLowConf      prometheus.Counter
	shotsDetected     *prometheus.CounterVec
	overallScore      prometheus.Histogram

	// Stage Performance Metrics
	stageDuration *prometheus.HistogramVec
	poseLatency   prometheus.Histogram

	// Operational Health Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	workerCount      prometheus.Gauge
	activeAnalyses   prometheus.Gauge

	// Repository Metrics
	repositorySaveLatency  prometheus.Histogram
	repositoryQueryLatency prometheus.Histogram
	resultsStored          prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rallylens",
		subsystem:        "analysis",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // registers every pipeline metric in one place
	auto := promauto.With(m.registry)

	m.analysesSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_submitted_total",
		Help:      "Total number of analysis requests accepted for processing",
	})

	m.analysesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_duplicate_total",
		Help:      "Total number of duplicate analysis submissions",
	})

	m.analysesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_completed_total",
		Help:      "Total number of analyses that produced a result",
	})

	m.analysesFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_failed_total",
		Help:      "Total number of failed analyses by failure reason",
	}, []string{"reason"})

	m.framesSampled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_sampled_total",
		Help:      "Total number of frames extracted from source videos",
	})

	m.posesEstimated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poses_estimated_total",
		Help:      "Total number of pose frames produced by the backend",
	})

	m.posesLowConf = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poses_low_confidence_total",
		Help:      "Total number of pose frames below the confidence threshold",
	})

	m.shotsDetected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "shots_detected_total",
		Help:      "Total number of detected shots by shot type",
	}, []string{"type"})

	m.overallScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "overall_score",
		Help:      "Distribution of overall analysis scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_milliseconds",
		Help:      "Pipeline stage duration in milliseconds",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 15000, 60000, 300000},
	}, []string{"stage"})

	m.poseLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pose_latency_milliseconds",
		Help:      "Per-frame pose estimation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of queued analysis jobs",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the analysis job queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization",
		Help:      "Queue utilization ratio between 0 and 1",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of analysis workers",
	})

	m.activeAnalyses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_analyses",
		Help:      "Number of analyses currently running",
	})

	m.repositorySaveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_save_latency_milliseconds",
		Help:      "Result persistence latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Result query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.resultsStored = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_stored",
		Help:      "Number of analysis results held by the repository",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Total errors by component and error type",
	}, []string{"component", "error_type"})
}

// RecordAnalysisSubmitted increments the submitted analyses counter.
func RecordAnalysisSubmitted() {
	globalManager.analysesSubmitted.Inc()
}

// RecordAnalysisDuplicate increments the duplicate submissions counter.
func RecordAnalysisDuplicate() {
	globalManager.analysesDuplicate.Inc()
}

// RecordAnalysisCompleted increments the completed analyses counter.
func RecordAnalysisCompleted() {
	globalManager.analysesCompleted.Inc()
}

// RecordAnalysisFailed increments the failed analyses counter for a reason.
func RecordAnalysisFailed(reason string) {
	globalManager.analysesFailed.WithLabelValues(reason).Inc()
}

// RecordFramesSampled adds to the sampled frames counter.
func RecordFramesSampled(n int) {
	globalManager.framesSampled.Add(float64(n))
}

// RecordPoseEstimated increments the estimated poses counter.
func RecordPoseEstimated() {
	globalManager.posesEstimated.Inc()
}

// RecordPoseLowConfidence increments the low-confidence poses counter.
func RecordPoseLowConfidence() {
	globalManager.posesLowConf.Inc()
}

// RecordShotDetected increments the detected shots counter for a shot type.
func RecordShotDetected(shotType string) {
	globalManager.shotsDetected.WithLabelValues(shotType).Inc()
}

// RecordOverallScore observes an overall analysis score.
func RecordOverallScore(score float64) {
	globalManager.overallScore.Observe(score)
}

// RecordStageDuration records a pipeline stage duration in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordPoseLatency records per-frame pose estimation latency in milliseconds.
func RecordPoseLatency(latencyMs float64) {
	globalManager.poseLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateActiveAnalyses sets the active analyses gauge.
func UpdateActiveAnalyses(count int) {
	globalManager.activeAnalyses.Set(float64(count))
}

// RecordRepositorySaveLatency records result persistence latency in milliseconds.
func RecordRepositorySaveLatency(latencyMs float64) {
	globalManager.repositorySaveLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records result query latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateResultsStored sets the stored results gauge.
func UpdateResultsStored(count int) {
	globalManager.resultsStored.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
