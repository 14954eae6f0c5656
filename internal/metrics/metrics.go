package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "estatehub"

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry          *prometheus.Registry
	StorageOps        *prometheus.CounterVec
	RemoteCallLatency *prometheus.HistogramVec
	RemoteCallErrors  *prometheus.CounterVec
	Events            *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		StorageOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Storage operations by operation and the store that served them.",
		}, []string{"operation", "source"}),
		RemoteCallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of calls to the remote document store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		RemoteCallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_call_errors_total",
			Help:      "Failed calls to the remote document store.",
		}, []string{"call", "reason"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_events_total",
			Help:      "Listing events by type and delivery outcome.",
		}, []string{"type", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.StorageOps,
		m.RemoteCallLatency,
		m.RemoteCallErrors,
		m.Events,
		m.HTTPRequests,
		m.HTTPLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStorage counts one adapter operation.
func (m *Metrics) ObserveStorage(operation, source string) {
	if m == nil {
		return
	}
	m.StorageOps.WithLabelValues(operation, source).Inc()
}

// ObserveRemoteCall records the latency of a remote call and counts failures.
func (m *Metrics) ObserveRemoteCall(call string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RemoteCallLatency.WithLabelValues(call).Observe(elapsed.Seconds())
	if err != nil {
		m.RemoteCallErrors.WithLabelValues(call, failureReason(err)).Inc()
	}
}

// ObserveEvent counts one event delivery outcome.
func (m *Metrics) ObserveEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType, outcome).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

type timeout interface {
	Timeout() bool
}

func failureReason(err error) string {
	var t timeout
	if errors.As(err, &t) && t.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
