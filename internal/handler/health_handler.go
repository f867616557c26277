package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicalink/staff-backend/pkg/database"
	"github.com/medicalink/staff-backend/pkg/redis"
	"github.com/medicalink/staff-backend/pkg/response"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.PostgresDB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health reports process liveness
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports whether the backing stores are reachable
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := h.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "up"
	}

	if err := h.cache.HealthCheck(c.Request.Context()); err != nil {
		checks["cache"] = "down"
		healthy = false
	} else {
		checks["cache"] = "up"
	}

	if !healthy {
		response.Error(c, http.StatusServiceUnavailable, "NOT_READY", "One or more dependencies are unavailable")
		return
	}
	response.Success(c, checks)
}

// KeepAlive is a cheap no-op endpoint for uptime pingers
// GET /keep-alive
func (h *HealthHandler) KeepAlive(c *gin.Context) {
	response.Success(c, gin.H{"alive": true})
}
