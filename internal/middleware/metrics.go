package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpRequestSize     *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Storage operation metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Schema validation metrics
	SchemaValidationFailures *prometheus.CounterVec

	// Backend health metrics
	StorageUp *prometheus.GaugeVec
}

var (
	metrics *PrometheusMetrics
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics() {
	metrics = &PrometheusMetrics{
		// HTTP request metrics
		HttpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableconfig_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tableconfig_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tableconfig_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),
		HttpResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tableconfig_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		// Storage operation metrics
		StorageOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableconfig_storage_operations_total",
				Help: "Total number of storage operations against the configuration table",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tableconfig_storage_operation_duration_seconds",
				Help:    "Storage operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Schema validation metrics
		SchemaValidationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tableconfig_schema_validation_failures_total",
				Help: "Total number of rejected schema submissions",
			},
			[]string{"reason"},
		),

		// Backend health metrics
		StorageUp: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tableconfig_storage_up",
				Help: "Whether the configuration store is reachable (1=up, 0=down)",
			},
			[]string{"backend"},
		),
	}
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		// Start timer
		start := time.Now()

		// Process request
		c.Next()

		// Calculate metrics
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()

		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		// Record metrics
		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)

		// Record request size if available
		if c.Request.ContentLength > 0 {
			metrics.HttpRequestSize.WithLabelValues(method, endpoint).Observe(float64(c.Request.ContentLength))
		}

		// Record response size if available
		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordStorageOperation records one repository call against the
// configuration table
func RecordStorageOperation(operation string, success bool, duration time.Duration) {
	if metrics == nil {
		return
	}

	status := "success"
	if !success {
		status = "error"
	}
	metrics.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	metrics.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSchemaValidationFailure records a rejected schema submission
func RecordSchemaValidationFailure(reason string) {
	if metrics == nil {
		return
	}

	metrics.SchemaValidationFailures.WithLabelValues(reason).Inc()
}

// UpdateStorageHealth updates the backend reachability gauge
func UpdateStorageHealth(backend string, up bool) {
	if metrics == nil {
		return
	}

	value := 0.0
	if up {
		value = 1.0
	}
	metrics.StorageUp.WithLabelValues(backend).Set(value)
}
