package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
}

var (
	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapselect_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status"})

	// Active connections gauge
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snapselect_active_connections",
		Help: "Number of active connections",
	})

	// Total requests counter
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapselect_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// Photo upload size histogram
	photoUploadSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapselect_photo_upload_size_bytes",
		Help:    "Size of uploaded photos in bytes",
		Buckets: []float64{100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024, 50 * 1024 * 1024},
	})

	// Total photos uploaded
	photosUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapselect_photos_uploaded_total",
		Help: "Total number of photos uploaded",
	})

	// Total galleries shared
	galleriesShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapselect_galleries_shared_total",
		Help: "Total number of galleries shared",
	})

	// Revocations by resulting restriction type
	revocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapselect_revocations_total",
		Help: "Total number of share revocations by restriction outcome",
	}, []string{"restriction_type"})

	// Uploads rejected by the restriction policy
	restrictedUploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapselect_restricted_uploads_total",
		Help: "Total number of uploads rejected by an active restriction",
	})

	// Client selections submitted
	selectionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapselect_selections_submitted_total",
		Help: "Total number of client selections submitted",
	})

	// Failed authentication attempts counter
	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapselect_auth_failures_total",
		Help: "Total number of failed authentication attempts",
	}, []string{"reason"})
)

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handler returns the Prometheus metrics handler for Fiber
func (h *MetricsHandler) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Gather metrics from the default registry
		mfs, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			return c.Status(500).SendString("Failed to gather metrics")
		}

		// Format as Prometheus text format
		var sb strings.Builder
		for _, mf := range mfs {
			if _, err := expfmt.MetricFamilyToText(&sb, mf); err != nil {
				return c.Status(500).SendString("Failed to format metrics")
			}
		}

		c.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		return c.SendString(sb.String())
	}
}

// MetricsMiddleware records HTTP metrics for each request
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Increment active connections
		activeConnections.Inc()
		defer activeConnections.Dec()
		start := time.Now()

		// Continue request processing
		err := c.Next()

		// Record metrics
		status := c.Response().StatusCode()
		path := c.Route().Path
		if path == "" {
			path = "__unmatched__"
		}

		statusStr := "200"
		if status >= 200 && status < 300 {
			statusStr = "2xx"
		} else if status >= 300 && status < 400 {
			statusStr = "3xx"
		} else if status >= 400 && status < 500 {
			statusStr = "4xx"
		} else if status >= 500 {
			statusStr = "5xx"
		}

		totalRequests.WithLabelValues(c.Method(), path, statusStr).Inc()
		httpDuration.WithLabelValues(c.Method(), path, statusStr).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordPhotoUpload records metrics for photo uploads
func RecordPhotoUpload(size float64) {
	photoUploadSize.Observe(size)
	photosUploaded.Inc()
}

// RecordGalleryShared records metrics for gallery shares
func RecordGalleryShared() {
	galleriesShared.Inc()
}

// RecordRevocation records a revocation and its restriction outcome.
func RecordRevocation(restrictionType string) {
	revocations.WithLabelValues(restrictionType).Inc()
}

// RecordRestrictedUpload records an upload rejected by an active restriction.
func RecordRestrictedUpload() {
	restrictedUploads.Inc()
}

// RecordSelectionSubmitted records a client selection submission.
func RecordSelectionSubmitted() {
	selectionsSubmitted.Inc()
}

// RecordAuthFailure increments the failed auth counter with a reason label.
func RecordAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}
