package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsRouter(t *testing.T) (*gin.Engine, *HTTPMetrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)

	router := gin.New()
	router.Use(metrics.Handler())
	router.POST("/api/v1/session/extend", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.POST("/api/v1/auth/sign-in", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	})
	return router, metrics
}

func TestHTTPMetricsHandlerRecordsRequests(t *testing.T) {
	router, metrics := newMetricsRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/session/extend", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	labels := prometheus.Labels{"method": http.MethodPost, "route": "/api/v1/session/extend", "status": "200"}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.With(labels)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Duration))
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.Throttled))
}

func TestHTTPMetricsHandlerCountsThrottledRequests(t *testing.T) {
	router, metrics := newMetricsRouter(t)

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Throttled.WithLabelValues("/api/v1/auth/sign-in")))
	unmatched := prometheus.Labels{"method": http.MethodGet, "route": "unmatched", "status": "404"}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.With(unmatched)))
}

func TestHTTPMetricsHandlerNoopWhenNil(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use((*HTTPMetrics)(nil).Handler())
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	require.NoError(t, err)
	second, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	require.NoError(t, err)
	assert.Same(t, first.Requests, second.Requests)
	assert.Same(t, first.Throttled, second.Throttled)
}
