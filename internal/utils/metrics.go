// Package utils provides utility functions including metrics collection.
package utils

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apcc_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status_code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apcc_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	githubCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apcc_github_api_calls_total",
		Help: "Total number of calls made to the GitHub API",
	}, []string{"operation", "result"})

	githubCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apcc_github_api_call_duration_seconds",
		Help:    "GitHub API call duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	hydrationCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apcc_repository_stats_cache_total",
		Help: "Repository stats cache lookups by result",
	}, []string{"result"})

	refreshTokensPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apcc_refresh_tokens_purged_total",
		Help: "Total number of expired or revoked refresh tokens deleted",
	})

	rateLimitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apcc_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"route"})

	// activeGoroutines is used by Prometheus for monitoring active goroutines
	//nolint:unused // Used by Prometheus metrics collection
	activeGoroutines = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "apcc_goroutines_active",
		Help: "Number of active goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})
)

// MetricsCollector collects basic application metrics.
type MetricsCollector struct {
	startTime     time.Time
	requests      int64
	githubCalls   int64
	tokensPurged  int64
	cacheHits     int64
	cacheMisses   int64
	rateLimitHits int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime: time.Now(),
	}
}

// RecordHTTPRequest records an HTTP request metric.
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	atomic.AddInt64(&m.requests, 1)
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordGitHubCall records one call to the GitHub API.
func (m *MetricsCollector) RecordGitHubCall(operation string, err error, duration time.Duration) {
	atomic.AddInt64(&m.githubCalls, 1)
	result := "ok"
	if err != nil {
		result = "error"
	}
	githubCallsTotal.WithLabelValues(operation, result).Inc()
	githubCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStatsCache records a repository stats cache hit or miss.
func (m *MetricsCollector) RecordStatsCache(hit bool) {
	if hit {
		atomic.AddInt64(&m.cacheHits, 1)
		hydrationCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	atomic.AddInt64(&m.cacheMisses, 1)
	hydrationCacheTotal.WithLabelValues("miss").Inc()
}

// AddTokensPurged adds n to the purged refresh tokens counter.
func (m *MetricsCollector) AddTokensPurged(n int64) {
	atomic.AddInt64(&m.tokensPurged, n)
	refreshTokensPurgedTotal.Add(float64(n))
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *MetricsCollector) RecordRateLimited(route string) {
	atomic.AddInt64(&m.rateLimitHits, 1)
	rateLimitRejectionsTotal.WithLabelValues(route).Inc()
}

// GetMetrics returns the current metrics as a JSON-serializable struct.
func (m *MetricsCollector) GetMetrics() *Metrics {
	return &Metrics{
		Uptime:              time.Since(m.startTime).String(),
		UptimeSeconds:       int64(time.Since(m.startTime).Seconds()),
		Goroutines:          runtime.NumGoroutine(),
		Requests:            atomic.LoadInt64(&m.requests),
		GitHubCalls:         atomic.LoadInt64(&m.githubCalls),
		RefreshTokensPurged: atomic.LoadInt64(&m.tokensPurged),
		StatsCacheHits:      atomic.LoadInt64(&m.cacheHits),
		StatsCacheMisses:    atomic.LoadInt64(&m.cacheMisses),
		RateLimited:         atomic.LoadInt64(&m.rateLimitHits),
	}
}

// Metrics represents the application metrics.
type Metrics struct {
	Uptime              string `json:"uptime"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	Goroutines          int    `json:"goroutines"`
	Requests            int64  `json:"requests"`
	GitHubCalls         int64  `json:"github_calls"`
	RefreshTokensPurged int64  `json:"refresh_tokens_purged"`
	StatsCacheHits      int64  `json:"stats_cache_hits"`
	StatsCacheMisses    int64  `json:"stats_cache_misses"`
	RateLimited         int64  `json:"rate_limited"`
}
