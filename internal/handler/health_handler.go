package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db    *sqlx.DB
	redis *cache.RedisClient
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db *sqlx.DB, redis *cache.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func dependencyStatus(err error) string {
	if err != nil {
		return "disconnected"
	}
	return "connected"
}

// GetHealth responds with service, database and Redis status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.db.PingContext(ctx)
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = dependencyStatus(h.redis.Ping(ctx))
	}

	if dbErr != nil {
		utils.Error(c, 503, "SERVICE_UNAVAILABLE", "Database is unreachable")
		return
	}

	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":   "healthy",
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"database": dependencyStatus(dbErr),
		"redis":    redisStatus,
	})
}
