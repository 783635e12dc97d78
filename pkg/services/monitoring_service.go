package services

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxLogEntries bounds the in-memory request log.
const maxLogEntries = 10000

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	RequestID    string        `json:"requestId,omitempty"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
}

// MonitoringService keeps a rolling request log for the dashboard and the
// Prometheus collectors exposed on /metrics.
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location

	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	processOutcomes *prometheus.CounterVec
	llmDuration     prometheus.Histogram
}

// NewMonitoringService creates a MonitoringService whose dashboard buckets
// are aligned to timezone. An unknown timezone falls back to UTC.
func NewMonitoringService(timezone string) *MonitoringService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("⚠️ unknown monitoring timezone %q, using UTC: %v", timezone, err)
		loc = time.UTC
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: loc,
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waste_api_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waste_api_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		processOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waste_api_process_outcomes_total",
				Help: "Process pipeline results by failure class",
			},
			[]string{"outcome"},
		),
		llmDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "waste_api_llm_call_duration_seconds",
				Help:    "Latency of completion calls",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
			},
		),
	}
}

// Registry returns the Prometheus registry holding the service collectors.
func (s *MonitoringService) Registry() *prometheus.Registry { return s.registry }

// MetricsHandler serves the registry in the Prometheus exposition format.
func (s *MonitoringService) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveProcess counts one pipeline run, classified by its error.
func (s *MonitoringService) ObserveProcess(err error) {
	s.processOutcomes.WithLabelValues(Outcome(err)).Inc()
}

// ObserveLLMCall records the latency of one completion call.
func (s *MonitoringService) ObserveLLMCall(d time.Duration) {
	s.llmDuration.Observe(d.Seconds())
}

// Outcome maps a pipeline error to its failure class label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrMalformedUpstreamResponse):
		return "malformed_upstream_response"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	}
	return "internal"
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		s.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		// 管理系のパスはダッシュボードに含めない
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") || path == "/metrics" {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			RequestID:    c.Writer.Header().Get(RequestIDHeader),
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: elapsed,
		})
	}
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []map[string]interface{} `json:"requestsOverTime"`
	Endpoints        map[string]int           `json:"endpoints"`
	StatusCodes      []map[string]interface{} `json:"statusCodes"`
	AvgResponseTimes []map[string]interface{} `json:"avgResponseTimes"`
	RecentErrors     []LogEntry               `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	return s.dashboardAt(time.Now(), periodHours)
}

func (s *MonitoringService) dashboardAt(at time.Time, periodHours int) DashboardData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if periodHours <= 0 {
		periodHours = 24
	}
	now := at.In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 過去から現在へ向かう順序で時間バケットを用意する
	requestsOverTime := make([]map[string]interface{}, periodHours)
	bucketIndex := make(map[string]int, periodHours)
	for i := 0; i < periodHours; i++ {
		target := now.Add(-time.Duration(periodHours-1-i) * time.Hour)
		bucketIndex[target.Truncate(time.Hour).Format(time.RFC3339)] = i
		requestsOverTime[i] = map[string]interface{}{"time": target.Format("15:00"), "requests": 0}
	}
	for _, entry := range filtered {
		key := entry.Timestamp.In(s.location).Truncate(time.Hour).Format(time.RFC3339)
		if i, ok := bucketIndex[key]; ok {
			requestsOverTime[i]["requests"] = requestsOverTime[i]["requests"].(int) + 1
		}
	}

	endpoints := make(map[string]int)
	for _, entry := range filtered {
		endpoints[entry.Path]++
	}

	classes := []struct {
		name   string
		lo, hi int
	}{
		{"2xx Success", 200, 300},
		{"4xx Client Error", 400, 500},
		{"5xx Server Error", 500, 600},
	}
	statusCodes := make([]map[string]interface{}, 0, len(classes))
	for _, class := range classes {
		count := 0
		for _, entry := range filtered {
			if entry.StatusCode >= class.lo && entry.StatusCode < class.hi {
				count++
			}
		}
		statusCodes = append(statusCodes, map[string]interface{}{"name": class.name, "value": count})
	}

	responseTimeSum := make(map[string]time.Duration)
	responseCount := make(map[string]int)
	var order []string
	for _, entry := range filtered {
		if _, seen := responseCount[entry.Path]; !seen {
			order = append(order, entry.Path)
		}
		responseTimeSum[entry.Path] += entry.ResponseTime
		responseCount[entry.Path]++
	}
	avgResponseTimes := make([]map[string]interface{}, 0, len(order))
	for _, path := range order {
		avg := responseTimeSum[path].Milliseconds() / int64(responseCount[path])
		avgResponseTimes = append(avgResponseTimes, map[string]interface{}{"endpoint": path, "responseTime": avg})
	}

	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: requestsOverTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		AvgResponseTimes: avgResponseTimes,
		RecentErrors:     recentErrors,
	}
}
