package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Job metrics
	JobsTotal          *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	JobQueueDepth      prometheus.Gauge
	ActiveJobs         prometheus.Gauge
	JobsProcessedTotal *prometheus.CounterVec

	// Render metrics
	FramesRenderedTotal prometheus.Counter
	FrameRenderSeconds  prometheus.Histogram
	ElementsSkipped     prometheus.Counter

	// Frame extraction metrics
	ExtractionSeconds prometheus.Histogram
	ExtractionErrors  *prometheus.CounterVec

	// WebSocket metrics
	WebSocketConnections   prometheus.Gauge
	WebSocketMessagesTotal *prometheus.CounterVec

	// File storage metrics
	StorageFilesTotal *prometheus.GaugeVec
	StorageBytesTotal *prometheus.GaugeVec
}

// New creates and registers all metrics
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		JobsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_jobs_total",
				Help: "Total number of render jobs created",
			},
			[]string{"status"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "render_job_duration_seconds",
				Help:    "Render job duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"status"},
		),
		JobQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "render_job_queue_depth",
				Help: "Current number of render jobs in queue",
			},
		),
		ActiveJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_render_jobs",
				Help: "Number of render jobs currently processing",
			},
		),
		JobsProcessedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "render_jobs_processed_total",
				Help: "Total number of render jobs processed",
			},
			[]string{"status"},
		),

		FramesRenderedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "frames_rendered_total",
				Help: "Total number of frames composed",
			},
		),
		FrameRenderSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frame_render_seconds",
				Help:    "Per-frame composition latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		ElementsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "render_elements_skipped_total",
				Help: "Elements skipped due to recoverable painter failures",
			},
		),

		ExtractionSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frame_extraction_seconds",
				Help:    "Video frame extraction time in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		ExtractionErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frame_extraction_errors_total",
				Help: "Total number of frame extraction errors",
			},
			[]string{"error_type"},
		),

		WebSocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "websocket_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WebSocketMessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websocket_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"type"},
		),

		StorageFilesTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_files_total",
				Help: "Total number of files in storage",
			},
			[]string{"zone"},
		),
		StorageBytesTotal: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "storage_bytes_total",
				Help: "Total storage size in bytes",
			},
			[]string{"zone"},
		),
	}

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := statusCodeToString(statusCode)

	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordJobCreated records job creation
func (m *Metrics) RecordJobCreated() {
	m.JobsTotal.WithLabelValues("created").Inc()
	m.JobQueueDepth.Inc()
}

// RecordJobStarted records job start
func (m *Metrics) RecordJobStarted() {
	m.ActiveJobs.Inc()
	m.JobQueueDepth.Dec()
}

// RecordJobCompleted records job completion
func (m *Metrics) RecordJobCompleted(status string, duration time.Duration) {
	m.ActiveJobs.Dec()
	m.JobDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.JobsProcessedTotal.WithLabelValues(status).Inc()
	m.JobsTotal.WithLabelValues(status).Inc()
}

// RecordFrame records one composed frame
func (m *Metrics) RecordFrame(duration time.Duration) {
	m.FramesRenderedTotal.Inc()
	m.FrameRenderSeconds.Observe(duration.Seconds())
}

// RecordExtraction records a frame extraction run
func (m *Metrics) RecordExtraction(duration time.Duration) {
	m.ExtractionSeconds.Observe(duration.Seconds())
}

// RecordExtractionError records a frame extraction failure
func (m *Metrics) RecordExtractionError(errorType string) {
	m.ExtractionErrors.WithLabelValues(errorType).Inc()
}

// RecordWebSocketConnection records WebSocket connection change
func (m *Metrics) RecordWebSocketConnection(connected bool) {
	if connected {
		m.WebSocketConnections.Inc()
	} else {
		m.WebSocketConnections.Dec()
	}
}

// RecordWebSocketMessage records WebSocket message
func (m *Metrics) RecordWebSocketMessage(messageType string) {
	m.WebSocketMessagesTotal.WithLabelValues(messageType).Inc()
}

// UpdateStorageMetrics updates storage metrics
func (m *Metrics) UpdateStorageMetrics(zone string, fileCount int64, bytes int64) {
	m.StorageFilesTotal.WithLabelValues(zone).Set(float64(fileCount))
	m.StorageBytesTotal.WithLabelValues(zone).Set(float64(bytes))
}

// statusCodeToString converts HTTP status code to category string
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
