package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/notify"
	"github.com/safin-krmavi/Bulltrek/internal/repository"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
	"github.com/safin-krmavi/Bulltrek/internal/submission"
)

type StrategyHandler struct {
	Submitter *submission.Submitter
	Repo      repository.Repository
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

type strategyRequest struct {
	BrokerageID string        `json:"brokerage_id"`
	Form        strategy.Form `json:"form"`
}

type strategyTypeView struct {
	strategy.Variant
	CreatePath string `json:"create_path"`
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/strategy-types", h.listTypes)
	group := r.Group("/api/v1/strategies")
	group.GET("", h.listStrategies)
	group.POST("/custom", h.createCustom)
	group.POST("/:type", h.createStrategy)
	group.POST("/:type/validate", h.validate)
}

// @Summary List strategy types and their form fields
// @Tags strategies
// @Success 200 {object} apiResponse
// @Router /api/v1/strategy-types [get]
func (h *StrategyHandler) listTypes(c *gin.Context) {
	variants := strategy.Variants()
	out := make([]strategyTypeView, 0, len(variants))
	for _, v := range variants {
		out = append(out, strategyTypeView{Variant: v, CreatePath: v.CreatePath()})
	}
	Ok(c, out, map[string]any{"segments": strategy.Segments})
}

// @Summary Validate a strategy form
// @Tags strategies
// @Param type path string true "strategy type"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{type}/validate [post]
func (h *StrategyHandler) validate(c *gin.Context) {
	t, ok := parseType(c)
	if !ok {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	err := strategy.Check(req.Form, t)
	var verr *strategy.ValidationError
	if err != nil && !errors.As(err, &verr) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	data := map[string]any{
		"valid":   err == nil,
		"missing": strategy.Validate(req.Form, t),
	}
	if verr != nil {
		data["fields"] = verr.Fields
		data["problems"] = verr.Problems
		data["message"] = verr.Error()
	}
	Ok(c, data, nil)
}

// @Summary Create a strategy upstream
// @Tags strategies
// @Param type path string true "strategy type"
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/v1/strategies/{type} [post]
func (h *StrategyHandler) createStrategy(c *gin.Context) {
	if h.Submitter == nil {
		Error(c, http.StatusInternalServerError, "submitter unavailable", nil)
		return
	}
	t, ok := parseType(c)
	if !ok {
		return
	}
	var req strategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	res, err := h.Submitter.CreateStrategy(c.Request.Context(), sessionFrom(c), t, req.Form, req.BrokerageID)
	if err != nil {
		Fail(c, err)
		return
	}
	h.notify(notify.Event{
		Type:         notify.EventStrategyCreated,
		Level:        notify.LevelSuccess,
		Message:      "Strategy created successfully",
		StrategyType: t.Slug(),
		StrategyID:   res.ID,
	})
	Ok(c, res, nil)
}

// @Summary Create a custom strategy and its paper bot
// @Tags strategies
// @Success 200 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Router /api/v1/strategies/custom [post]
func (h *StrategyHandler) createCustom(c *gin.Context) {
	if h.Submitter == nil {
		Error(c, http.StatusInternalServerError, "submitter unavailable", nil)
		return
	}
	var req submission.CustomStrategy
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	res, err := h.Submitter.CreateCustomStrategy(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	if res.StrategyID != "" {
		h.notify(notify.Event{
			Type:         notify.EventStrategyCreated,
			Level:        notify.LevelSuccess,
			Message:      res.Message,
			StrategyType: submission.CustomType,
			StrategyID:   res.StrategyID,
			BotID:        res.BotID,
		})
	}
	Ok(c, res, nil)
}

func (h *StrategyHandler) notify(ev notify.Event) {
	if h.Notifier == nil {
		return
	}
	ev = ev.Stamp()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Notifier.Notify(ctx, ev); err != nil && h.Logger != nil {
			h.Logger.Warn("notify failed", zap.String("event", ev.Type), zap.Error(err))
		}
	}()
}

// @Summary List locally recorded strategies
// @Tags strategies
// @Param type query string false "strategy type"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies [get]
func (h *StrategyHandler) listStrategies(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListStrategiesParams{Limit: limit, Offset: offset}
	if raw := stringQueryPtr(c, "type"); raw != nil {
		t, err := strategy.Parse(*raw)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		slug := t.Slug()
		params.Type = &slug
	}
	if uid := strings.TrimSpace(sessionFrom(c).UserID); uid != "" {
		params.UserID = &uid
	}
	items, err := h.Repo.ListStrategies(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"id":           it.ID,
			"remote_id":    it.RemoteID,
			"type":         it.Type,
			"name":         it.Name,
			"brokerage_id": it.BrokerageID,
			"payload":      json.RawMessage(it.Payload),
			"created_at":   it.CreatedAt,
		})
	}
	Ok(c, out, paginationMeta(limit, offset, len(out)))
}

func parseType(c *gin.Context) (strategy.Type, bool) {
	t, err := strategy.Parse(c.Param("type"))
	if err != nil {
		Error(c, http.StatusNotFound, err.Error(), nil)
		return "", false
	}
	return t, true
}
