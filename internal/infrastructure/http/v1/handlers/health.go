// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"barstock/internal/infrastructure/storage/postgres"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	storage string
	checks  map[string]Check
	pool    *pgxpool.Pool
}

// NewHealthHandler creates a health handler. pool may be nil when the
// engine runs on the memory store.
func NewHealthHandler(storage string, checks map[string]Check, pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{storage: storage, checks: checks, pool: pool}
}

// Live handles liveness check (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles readiness check (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](c.Request.Context()); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "barstock",
		"storage": h.storage,
	}
	if h.pool != nil {
		body["database"] = postgres.GetPoolStats(h.pool)
	}
	c.JSON(http.StatusOK, body)
}
