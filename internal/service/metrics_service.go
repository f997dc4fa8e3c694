package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService wraps the Prometheus collectors for console traffic and
// roster backend calls.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamFailures *prometheus.CounterVec
	notices          *prometheus.CounterVec

	requestCount          uint64
	upstreamCount         uint64
	upstreamFailureCount  uint64
	upstreamDurationTotal uint64
}

// MetricsSnapshot is a compact summary served by the readiness probe.
type MetricsSnapshot struct {
	RequestsTotal             uint64  `json:"requestsTotal"`
	UpstreamCalls             uint64  `json:"upstreamCalls"`
	UpstreamFailures          uint64  `json:"upstreamFailures"`
	AverageUpstreamDurationMs float64 `json:"averageUpstreamDurationMs"`
	Goroutines                int     `json:"goroutines"`
}

// NewMetricsService registers the console collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of console HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of console HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_backend_request_duration_seconds",
		Help:    "Duration of roster backend calls by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	upstreamFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_backend_failures_total",
		Help: "Roster backend calls that failed or returned a non-2xx status",
	}, []string{"operation"})

	notices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_notices_total",
		Help: "User-facing notices raised by level",
	}, []string{"level"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, upstreamFailures, notices, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		upstreamFailures: upstreamFailures,
		notices:          notices,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records a console request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// ObserveUpstream records one roster backend exchange. Status 0 marks a
// transport failure.
func (m *MetricsService) ObserveUpstream(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamDuration.WithLabelValues(operation, label).Observe(duration.Seconds())
	atomic.AddUint64(&m.upstreamCount, 1)
	atomic.AddUint64(&m.upstreamDurationTotal, uint64(duration.Nanoseconds()))
	if status < 200 || status >= 300 {
		m.upstreamFailures.WithLabelValues(operation).Inc()
		atomic.AddUint64(&m.upstreamFailureCount, 1)
	}
}

// RecordNotice counts a notice shown to the user.
func (m *MetricsService) RecordNotice(level string) {
	if m == nil || level == "" {
		return
	}
	m.notices.WithLabelValues(level).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	calls := atomic.LoadUint64(&m.upstreamCount)
	total := atomic.LoadUint64(&m.upstreamDurationTotal)

	var avg float64
	if calls > 0 {
		avg = float64(total) / float64(calls) / float64(time.Millisecond)
	}
	return MetricsSnapshot{
		RequestsTotal:             atomic.LoadUint64(&m.requestCount),
		UpstreamCalls:             calls,
		UpstreamFailures:          atomic.LoadUint64(&m.upstreamFailureCount),
		AverageUpstreamDurationMs: avg,
		Goroutines:                runtime.NumGoroutine(),
	}
}
