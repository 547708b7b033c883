package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/exteriorcrm/internal/database"
	"github.com/charlesng35/exteriorcrm/pkg/logger"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is satisfied by optional backends such as the Redis cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports database connectivity and, when configured, cache connectivity.
func Health(db *gorm.DB, cache Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if err := database.Ping(ctx, db); err != nil {
			logger.Warn("health check: database unreachable", zap.Error(err))
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "up"
		}

		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				logger.Warn("health check: cache unreachable", zap.Error(err))
				checks["cache"] = "down"
				healthy = false
			} else {
				checks["cache"] = "up"
			}
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"success":    healthy,
			"status":     state,
			"checks":     checks,
			"checked_at": time.Now().UTC(),
		})
	}
}
