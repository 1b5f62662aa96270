// Package monitoring keeps the in-process request metrics and the health
// check registry behind /metrics/app, /health, /ready and /live, and feeds
// the prometheus collectors exposed at /metrics.
package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 1, 3},
		},
		[]string{"method", "route"},
	)

	inFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)
)

var processStart = time.Now()

type Metrics struct {
	mu sync.RWMutex

	RequestCount    int64
	RequestDuration time.Duration
	ActiveRequests  int64
	ErrorCount      int64
	StatusCodes     map[string]int64
	Endpoints       map[string]int64
	StartTime       time.Time
	LastRequest     time.Time

	totalDuration time.Duration
}

// MetricsSnapshot is a point-in-time copy of Metrics. RequestDuration is the
// mean over all completed requests.
type MetricsSnapshot struct {
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ns"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoints"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
}

var globalMetrics = &Metrics{
	StatusCodes: make(map[string]int64),
	Endpoints:   make(map[string]int64),
	StartTime:   time.Now(),
}

// MetricsMiddleware records every request in both the in-process metrics
// and the prometheus collectors. Routes are labelled by their gin pattern so
// identifiers do not explode label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests++
		globalMetrics.mu.Unlock()
		inFlightRequests.Inc()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())
		inFlightRequests.Dec()

		globalMetrics.mu.Lock()
		defer globalMetrics.mu.Unlock()

		globalMetrics.ActiveRequests--
		globalMetrics.RequestCount++
		globalMetrics.totalDuration += duration
		globalMetrics.RequestDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
		globalMetrics.LastRequest = time.Now()
		if status >= http.StatusInternalServerError {
			globalMetrics.ErrorCount++
		}
		globalMetrics.StatusCodes[http.StatusText(status)]++
		globalMetrics.Endpoints[c.Request.Method+" "+route]++
	}
}

func GetMetrics() MetricsSnapshot {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	snapshot := MetricsSnapshot{
		RequestCount:    globalMetrics.RequestCount,
		RequestDuration: globalMetrics.RequestDuration,
		ActiveRequests:  globalMetrics.ActiveRequests,
		ErrorCount:      globalMetrics.ErrorCount,
		StatusCodes:     make(map[string]int64, len(globalMetrics.StatusCodes)),
		Endpoints:       make(map[string]int64, len(globalMetrics.Endpoints)),
		StartTime:       globalMetrics.StartTime,
		LastRequest:     globalMetrics.LastRequest,
	}
	for k, v := range globalMetrics.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range globalMetrics.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

type SystemMetrics struct {
	Uptime         time.Duration `json:"uptime_ns"`
	GoroutineCount int           `json:"goroutines"`
	CPUCount       int           `json:"cpus"`
	GoVersion      string        `json:"go_version"`
	MemoryUsage    MemoryStats   `json:"memory"`
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		Uptime:         time.Since(processStart),
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(m.Alloc),
			TotalAlloc: bToMb(m.TotalAlloc),
			Sys:        bToMb(m.Sys),
			NumGC:      m.NumGC,
		},
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

// HealthCheckTimeout bounds each registered check.
const HealthCheckTimeout = 5 * time.Second

type HealthCheckFunc func(ctx context.Context) error

type HealthCheck struct {
	Name  string
	Check HealthCheckFunc
}

type HealthCheckResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

type healthChecker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheck
}

var globalHealthChecker = &healthChecker{checks: make(map[string]HealthCheck)}

// RegisterHealthCheck adds or replaces the check called name.
func RegisterHealthCheck(name string, check HealthCheckFunc) {
	globalHealthChecker.mu.Lock()
	defer globalHealthChecker.mu.Unlock()
	globalHealthChecker.checks[name] = HealthCheck{Name: name, Check: check}
}

// RunHealthChecks runs every registered check concurrently.
func RunHealthChecks() map[string]HealthCheckResult {
	globalHealthChecker.mu.RLock()
	checks := make([]HealthCheck, 0, len(globalHealthChecker.checks))
	for _, hc := range globalHealthChecker.checks {
		checks = append(checks, hc)
	}
	globalHealthChecker.mu.RUnlock()

	results := make(map[string]HealthCheckResult, len(checks))
	var mu sync.Mutex
	var g errgroup.Group
	for _, hc := range checks {
		hc := hc
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), HealthCheckTimeout)
			defer cancel()

			start := time.Now()
			result := HealthCheckResult{Name: hc.Name, Status: "healthy"}
			if err := hc.Check(ctx); err != nil {
				result.Status = "unhealthy"
				result.Message = err.Error()
			}
			result.Duration = time.Since(start)

			mu.Lock()
			results[hc.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func allHealthy(results map[string]HealthCheckResult) bool {
	for _, r := range results {
		if r.Status != "healthy" {
			return false
		}
	}
	return true
}

// MetricsHandler serves the in-process metrics as JSON.
func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": GetMetrics(),
			"system":      GetSystemMetrics(),
			"timestamp":   time.Now().UTC(),
		})
	}
}

// PrometheusHandler serves the default prometheus registry.
func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := RunHealthChecks()
		status, code := "healthy", http.StatusOK
		if !allHealthy(results) {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}

func ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := RunHealthChecks()
		if !allHealthy(results) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
			"uptime": time.Since(processStart).String(),
		})
	}
}
