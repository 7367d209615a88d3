package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/course-planner/internal/response"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// CatalogStats describes the in-memory catalog.
type CatalogStats interface {
	Len() int
	LoadedAt() time.Time
}

// QueueDepth reports how many import jobs are waiting.
type QueueDepth func(ctx context.Context) (int64, error)

// SystemHandler serves liveness and runtime status.
type SystemHandler struct {
	checks    map[string]HealthCheck
	catalog   CatalogStats
	queue     QueueDepth
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. checks is keyed by dependency
// name, e.g. "postgres" or "redis".
func NewSystemHandler(checks map[string]HealthCheck, catalog CatalogStats, queue QueueDepth, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		checks:    checks,
		catalog:   catalog,
		queue:     queue,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Returns 200 when every dependency answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	response.Success(c, status, gin.H{"status": state, "dependencies": deps})
}

type systemStatus struct {
	Uptime          string     `json:"uptime"`
	GoVersion       string     `json:"go_version"`
	Goroutines      int        `json:"goroutines"`
	HeapAlloc       uint64     `json:"heap_alloc"`
	CatalogSections int        `json:"catalog_sections"`
	CatalogLoadedAt *time.Time `json:"catalog_loaded_at,omitempty"`
	QueueImports    int64      `json:"queue_imports"`
}

// Status godoc
// GET /api/v1/system/status
// Returns process, catalog and import queue figures.
func (h *SystemHandler) Status(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	st := systemStatus{
		Uptime:          formatDuration(time.Since(h.startTime)),
		GoVersion:       runtime.Version(),
		Goroutines:      runtime.NumGoroutine(),
		HeapAlloc:       ms.HeapAlloc,
		CatalogSections: h.catalog.Len(),
	}
	if loaded := h.catalog.LoadedAt(); !loaded.IsZero() {
		st.CatalogLoadedAt = &loaded
	}
	if h.queue != nil {
		if n, err := h.queue(c.Request.Context()); err == nil {
			st.QueueImports = n
		}
	}

	response.Success(c, http.StatusOK, st)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
