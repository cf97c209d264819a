package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"catalog-import-service/internal/queue"
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	pool  *queue.Pool
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, pool *queue.Pool) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, pool: pool}
}

// Health reports service liveness plus dependency status and queue counters
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error"
	}

	redisStatus := "ok"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "error"
	}

	enqueued, processed, depth := h.pool.Metrics()

	code := http.StatusOK
	overall := "ok"
	if dbStatus != "ok" {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"database":  dbStatus,
		"redis":     redisStatus,
		"queue": gin.H{
			"enqueued":  enqueued,
			"processed": processed,
			"depth":     depth,
		},
	})
}
