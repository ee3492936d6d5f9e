package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness. DB and Cache are optional;
// a missing one is reported as disabled.
type HealthHandler struct {
	DB    *gorm.DB
	Cache Pinger
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	out := gin.H{"status": "ready", "db": "disabled", "cache": "disabled"}
	status := http.StatusOK
	if h.DB != nil {
		out["db"] = "ok"
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			out["db"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Cache != nil {
		out["cache"] = "ok"
		if err := h.Cache.Ping(ctx); err != nil {
			// Brokerage lists are fetched uncached while redis is down.
			out["cache"] = "degraded"
		}
	}
	if status != http.StatusOK {
		out["status"] = "unavailable"
	}
	c.JSON(status, out)
}
