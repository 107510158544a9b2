package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/auth-sentry/pkg/database"
	pkgredis "github.com/prohmpiriya/auth-sentry/pkg/redis"
)

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db    *database.PostgresDB
	redis *pkgredis.Client
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db *database.PostgresDB, redis *pkgredis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "auth-sentry",
	})
}

// Ready checks if the service is ready to accept traffic
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"service":  "auth-sentry",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "connected"
		if err := h.redis.Ping(c.Request.Context()); err != nil {
			redisStatus = "disconnected"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"service":  "auth-sentry",
		"database": "connected",
		"redis":    redisStatus,
	})
}
