package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveStorage(t *testing.T) {
	m := New()

	m.ObserveStorage("fetch_all", "remote")
	m.ObserveStorage("fetch_all", "local")
	m.ObserveStorage("fetch_all", "local")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StorageOps.WithLabelValues("fetch_all", "remote")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StorageOps.WithLabelValues("fetch_all", "local")))
}

func TestMetrics_ObserveRemoteCall(t *testing.T) {
	m := New()

	m.ObserveRemoteCall("read", 20*time.Millisecond, nil)
	m.ObserveRemoteCall("read", time.Second, fmt.Errorf("request failed: %w", context.DeadlineExceeded))
	m.ObserveRemoteCall("replace", 5*time.Millisecond, errors.New("unexpected response status: 500"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.RemoteCallLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCallErrors.WithLabelValues("read", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCallErrors.WithLabelValues("replace", "error")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStorage("create", "local")
		m.ObserveRemoteCall("create", time.Millisecond, nil)
		m.ObserveEvent("listing.created", "published")
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	m.ObserveEvent("listing.created", "published")

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/listings/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings/42", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/listings/:id", "404")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `estatehub_listing_events_total{outcome="published",type="listing.created"} 1`)
	assert.Contains(t, string(body), `estatehub_http_requests_total{method="GET",route="/api/listings/:id",status="404"} 1`)
}
