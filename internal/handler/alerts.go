package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/safin-krmavi/Bulltrek/internal/alert"
)

type AlertHandler struct {
	Alerts *alert.Manager
}

func (h *AlertHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/alerts")
	group.GET("", h.list)
	group.POST("/:id/dismiss", h.dismiss)
}

// @Summary List visible alerts
// @Tags alerts
// @Success 200 {object} apiResponse
// @Router /api/v1/alerts [get]
func (h *AlertHandler) list(c *gin.Context) {
	if h.Alerts == nil {
		Ok(c, []alert.Alert{}, nil)
		return
	}
	Ok(c, h.Alerts.List(), nil)
}

// @Summary Dismiss an alert
// @Tags alerts
// @Param id path string true "alert id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/alerts/{id}/dismiss [post]
func (h *AlertHandler) dismiss(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if h.Alerts == nil || !h.Alerts.Dismiss(id) {
		Error(c, http.StatusNotFound, "alert not found", nil)
		return
	}
	Ok(c, gin.H{"id": id, "dismissed": true}, nil)
}
