package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safin-krmavi/Bulltrek/internal/brokerage"
)

type BrokerageHandler struct {
	Service *brokerage.Service
}

func (h *BrokerageHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/brokerages")
	group.GET("", h.list)
	group.PUT("/link", h.link)
}

// @Summary List brokerage connections
// @Tags brokerages
// @Success 200 {object} apiResponse
// @Router /api/v1/brokerages [get]
func (h *BrokerageHandler) list(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	items, err := h.Service.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Link a brokerage API key
// @Tags brokerages
// @Success 200 {object} apiResponse
// @Router /api/v1/brokerages/link [put]
func (h *BrokerageHandler) link(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req brokerage.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if err := req.Validate(); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Service.Link(c.Request.Context(), sessionFrom(c), req); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"linked": true, "brokerage_name": req.BrokerageName}, nil)
}
