package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-console/internal/service"
)

func metricsEngine(h *MetricsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	return r
}

func TestReadyReportsDependencies(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"views": healthy})

	rec := serve(metricsEngine(h), http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "ok", body["checks"].(map[string]interface{})["views"])
}

func TestReadyDegradedWhenDependencyFails(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	h := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"redis": down})

	rec := serve(metricsEngine(h), http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]interface{})["redis"])
}

func TestPrometheusEndpoint(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveUpstream("student.list", http.StatusOK, 0)
	h := NewMetricsHandler(metrics, nil)

	rec := serve(metricsEngine(h), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roster_backend_request_duration_seconds")

	disabled := NewMetricsHandler(nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(metricsEngine(disabled), http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusOK, serve(metricsEngine(disabled), http.MethodGet, "/health", nil).Code)
}
