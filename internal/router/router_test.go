package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/handler"
	"github.com/noah-isme/roster-console/internal/service"
	"github.com/noah-isme/roster-console/internal/session"
	"github.com/noah-isme/roster-console/pkg/config"
	reqidmiddleware "github.com/noah-isme/roster-console/pkg/middleware/requestid"
)

func testEngine(t *testing.T, exports bool) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Metrics:   config.MetricsConfig{Enabled: true},
		Export:    config.ExportConfig{Enabled: exports},
	}
	store := session.NewStore(config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "roster_session",
		MaxAge:     time.Hour,
	}, zap.NewNop())
	metrics := service.NewMetricsService()

	h := Handlers{
		Auth:    handler.NewAuthHandler(nil, store, nil, nil),
		Roster:  handler.NewRosterHandler(nil, nil, store, metrics, nil),
		Metrics: handler.NewMetricsHandler(metrics, nil),
	}
	return Setup(cfg, h, store, metrics, zap.NewNop())
}

func TestHealthCarriesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	testEngine(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(reqidmiddleware.HeaderKey))
}

func TestRosterRoutesRequireSession(t *testing.T) {
	engine := testEngine(t, true)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/roster"},
		{http.MethodPut, "/api/v1/roster/page"},
		{http.MethodPost, "/api/v1/roster/students/7/delete"},
		{http.MethodPost, "/api/v1/roster/dialog/submit"},
		{http.MethodGet, "/api/v1/roster/export"},
	} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		assert.Contains(t, rec.Body.String(), `"redirect":"/login"`, route.path)
	}
}

func TestExportRouteFollowsConfig(t *testing.T) {
	rec := httptest.NewRecorder()
	testEngine(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/roster/export", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	engine := testEngine(t, true)
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
}
