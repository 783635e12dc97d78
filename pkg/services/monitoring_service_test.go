package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: purchased_tons", ErrInvalidInput), "invalid_input"},
		{fmt.Errorf("%w: missing file", ErrDataUnavailable), "data_unavailable"},
		{fmt.Errorf("%w: timeout", ErrUpstream), "upstream_error"},
		{&MalformedResponseError{Cleaned: "x", Cause: errors.New("bad")}, "malformed_upstream_response"},
		{fmt.Errorf("%w: long_term is required", ErrSchemaMismatch), "schema_mismatch"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestDashboardData(t *testing.T) {
	s := NewMonitoringService("America/Bogota")
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

	s.LogRequest(LogEntry{Timestamp: now.Add(-10 * time.Minute), Path: "/api/v1/process/process", Method: "POST", StatusCode: 200, ResponseTime: 300 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-20 * time.Minute), Path: "/api/v1/process/process", Method: "POST", StatusCode: 500, ResponseTime: 100 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-2 * time.Hour), Path: "/api/v1/process/metrics", Method: "POST", StatusCode: 400, ResponseTime: 5 * time.Millisecond})
	s.LogRequest(LogEntry{Timestamp: now.Add(-48 * time.Hour), Path: "/health", Method: "GET", StatusCode: 200})

	data := s.dashboardAt(now, 24)

	require.Len(t, data.RequestsOverTime, 24)
	assert.Equal(t, 2, data.RequestsOverTime[23]["requests"])
	assert.Equal(t, "10:00", data.RequestsOverTime[23]["time"])
	assert.Equal(t, map[string]int{"/api/v1/process/process": 2, "/api/v1/process/metrics": 1}, data.Endpoints)

	require.Len(t, data.StatusCodes, 3)
	assert.Equal(t, 1, data.StatusCodes[0]["value"])
	assert.Equal(t, 1, data.StatusCodes[1]["value"])
	assert.Equal(t, 1, data.StatusCodes[2]["value"])

	require.Len(t, data.AvgResponseTimes, 2)
	assert.Equal(t, "/api/v1/process/process", data.AvgResponseTimes[0]["endpoint"])
	assert.Equal(t, int64(200), data.AvgResponseTimes[0]["responseTime"])

	require.Len(t, data.RecentErrors, 1)
	assert.Equal(t, 500, data.RecentErrors[0].StatusCode)
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	s := NewMonitoringService("Mars/Olympus_Mons")
	assert.Equal(t, time.UTC, s.location)
}

func TestLoggingMiddlewareAndMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewMonitoringService("UTC")

	r := gin.New()
	r.Use(s.LoggingMiddleware())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/api/v1/monitoring/logs", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(s.MetricsHandler()))

	for _, path := range []string{"/health", "/health", "/api/v1/monitoring/logs"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	data := s.GetDashboardData(1)
	assert.Equal(t, map[string]int{"/health": 2}, data.Endpoints)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `waste_api_http_requests_total{method="GET",route="/health",status="200"} 2`)
}
