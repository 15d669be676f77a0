package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// promauto registers on the default registry, so the metrics are initialized
// once for the whole package.
var initOnce sync.Once

func initTestMetrics() {
	initOnce.Do(InitMetrics)
}

func TestRecordersAreNilSafeBeforeInit(t *testing.T) {
	saved := metrics
	metrics = nil
	defer func() { metrics = saved }()

	RecordStorageOperation("upsert", true, time.Millisecond)
	RecordSchemaValidationFailure("row_defects")
	UpdateStorageHealth("mysql", true)
}

func TestRecordStorageOperation(t *testing.T) {
	initTestMetrics()

	RecordStorageOperation("list", true, 5*time.Millisecond)
	RecordStorageOperation("list", false, 5*time.Millisecond)

	success := testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("list", "success"))
	failure := testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("list", "error"))
	if success != 1 || failure != 1 {
		t.Errorf("storage counters = success %v, error %v", success, failure)
	}
}

func TestUpdateStorageHealth(t *testing.T) {
	initTestMetrics()

	UpdateStorageHealth("databricks", true)
	if got := testutil.ToFloat64(metrics.StorageUp.WithLabelValues("databricks")); got != 1 {
		t.Errorf("storage up gauge = %v, want 1", got)
	}

	UpdateStorageHealth("databricks", false)
	if got := testutil.ToFloat64(metrics.StorageUp.WithLabelValues("databricks")); got != 0 {
		t.Errorf("storage up gauge = %v, want 0", got)
	}
}

func TestPrometheusMiddlewareCountsRequests(t *testing.T) {
	initTestMetrics()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	got := testutil.ToFloat64(metrics.HttpRequestsTotal.WithLabelValues("GET", "/ping", "200"))
	if got != 1 {
		t.Errorf("request counter = %v, want 1", got)
	}
}
