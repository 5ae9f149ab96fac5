package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Monitor tracks request counters and named health checks. One instance
// is shared between the HTTP middleware and the health endpoints.
type Monitor struct {
	mu            sync.RWMutex
	startTime     time.Time
	requestCount  int64
	errorCount    int64
	active        int64
	totalDuration time.Duration
	lastRequest   time.Time
	statusCodes   map[int]int64
	endpoints     map[string]int64

	checkMu sync.RWMutex
	checks  map[string]CheckFunc

	// StatFuncs report live gauges (queue depths, socket counts) that
	// are owned by other packages.
	statMu sync.RWMutex
	stats  map[string]StatFunc
}

type CheckFunc func(ctx context.Context) error

type StatFunc func() interface{}

type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func NewMonitor() *Monitor {
	return &Monitor{
		startTime:   time.Now(),
		statusCodes: make(map[int]int64),
		endpoints:   make(map[string]int64),
		checks:      make(map[string]CheckFunc),
		stats:       make(map[string]StatFunc),
	}
}

// RegisterCheck adds a named health check. Checks run on every call to
// the health endpoint, each with a short timeout.
func (m *Monitor) RegisterCheck(name string, fn CheckFunc) {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()
	m.checks[name] = fn
}

// RegisterStat adds a named gauge included in the metrics payload.
func (m *Monitor) RegisterStat(name string, fn StatFunc) {
	m.statMu.Lock()
	defer m.statMu.Unlock()
	m.stats[name] = fn
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		m.mu.Lock()
		m.active++
		m.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.Request.Method + " " + c.FullPath()

		m.mu.Lock()
		m.active--
		m.requestCount++
		m.totalDuration += duration
		m.lastRequest = time.Now()
		if status >= 400 {
			m.errorCount++
		}
		m.statusCodes[status]++
		m.endpoints[endpoint]++
		m.mu.Unlock()
	}
}

func (m *Monitor) RunChecks(ctx context.Context) []CheckResult {
	m.checkMu.RLock()
	names := make([]string, 0, len(m.checks))
	fns := make([]CheckFunc, 0, len(m.checks))
	for name, fn := range m.checks {
		names = append(names, name)
		fns = append(fns, fn)
	}
	m.checkMu.RUnlock()

	results := make([]CheckResult, 0, len(names))
	for i, fn := range fns {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		result := CheckResult{Name: names[i], Status: "healthy"}
		if err := fn(checkCtx); err != nil {
			result.Status = "unhealthy"
			result.Message = err.Error()
		}
		cancel()
		results = append(results, result)
	}
	return results
}

func (m *Monitor) snapshot() gin.H {
	m.mu.RLock()
	avg := time.Duration(0)
	if m.requestCount > 0 {
		avg = m.totalDuration / time.Duration(m.requestCount)
	}
	statusCodes := make(map[int]int64, len(m.statusCodes))
	for k, v := range m.statusCodes {
		statusCodes[k] = v
	}
	endpoints := make(map[string]int64, len(m.endpoints))
	for k, v := range m.endpoints {
		endpoints[k] = v
	}
	app := gin.H{
		"request_count":        m.requestCount,
		"error_count":          m.errorCount,
		"active_requests":      m.active,
		"avg_request_duration": avg.String(),
		"status_codes":         statusCodes,
		"endpoint_calls":       endpoints,
		"last_request":         m.lastRequest,
	}
	m.mu.RUnlock()
	return app
}

func (m *Monitor) systemStats() gin.H {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return gin.H{
		"uptime":          time.Since(m.startTime).String(),
		"goroutine_count": runtime.NumGoroutine(),
		"go_version":      runtime.Version(),
		"memory": gin.H{
			"alloc_mb":   ms.Alloc / 1024 / 1024,
			"sys_mb":     ms.Sys / 1024 / 1024,
			"num_gc":     ms.NumGC,
			"next_gc_mb": ms.NextGC / 1024 / 1024,
		},
	}
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		gauges := gin.H{}
		m.statMu.RLock()
		for name, fn := range m.stats {
			gauges[name] = fn()
		}
		m.statMu.RUnlock()

		c.JSON(http.StatusOK, gin.H{
			"application": m.snapshot(),
			"system":      m.systemStats(),
			"gauges":      gauges,
			"timestamp":   time.Now(),
		})
	}
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunChecks(c.Request.Context())

		status := "healthy"
		code := http.StatusOK
		for _, check := range checks {
			if check.Status != "healthy" {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"checks":    checks,
			"uptime":    time.Since(m.startTime).String(),
			"timestamp": time.Now(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
			"uptime": time.Since(m.startTime).String(),
		})
	}
}
