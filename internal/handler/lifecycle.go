package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/safin-krmavi/Bulltrek/internal/lifecycle"
	"github.com/safin-krmavi/Bulltrek/internal/repository"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

type LifecycleHandler struct {
	Dispatcher *lifecycle.Dispatcher
	Repo       repository.Repository
}

type backtestRequest struct {
	BrokerageID string `json:"brokerage_id"`
	strategy.BacktestForm
}

type paperTradeRequest struct {
	BrokerageID string `json:"brokerage_id"`
	strategy.PaperTradeForm
}

type liveTradeRequest struct {
	BrokerageID string `json:"brokerage_id"`
}

func (h *LifecycleHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/strategies/:type/:id")
	group.POST("/backtest", h.backtest)
	group.POST("/paper-trade", h.paperTrade)
	group.POST("/live-trade", h.liveTrade)
	group.GET("/actions", h.actions)
	r.GET("/api/v1/bots/:id/backtest-result", h.backtestResult)
}

// @Summary Start a backtest
// @Tags lifecycle
// @Param type path string true "strategy type"
// @Param id path string true "strategy id"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/strategies/{type}/{id}/backtest [post]
func (h *LifecycleHandler) backtest(c *gin.Context) {
	tgt, ok := h.target(c)
	if !ok {
		return
	}
	var req backtestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	tgt.BrokerageID = req.BrokerageID
	out, err := h.Dispatcher.StartBacktest(c.Request.Context(), sessionFrom(c), tgt, req.BacktestForm)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Start paper trading
// @Tags lifecycle
// @Param type path string true "strategy type"
// @Param id path string true "strategy id"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{type}/{id}/paper-trade [post]
func (h *LifecycleHandler) paperTrade(c *gin.Context) {
	tgt, ok := h.target(c)
	if !ok {
		return
	}
	var req paperTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid json body", nil)
		return
	}
	if req.InitialBalance.String() == "" {
		req.InitialBalance = strategy.DefaultPaperBalance
	}
	tgt.BrokerageID = req.BrokerageID
	out, err := h.Dispatcher.StartPaperTrade(c.Request.Context(), sessionFrom(c), tgt, req.PaperTradeForm)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Start live trading
// @Tags lifecycle
// @Param type path string true "strategy type"
// @Param id path string true "strategy id"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{type}/{id}/live-trade [post]
func (h *LifecycleHandler) liveTrade(c *gin.Context) {
	tgt, ok := h.target(c)
	if !ok {
		return
	}
	var req liveTradeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid json body", nil)
			return
		}
	}
	tgt.BrokerageID = req.BrokerageID
	out, err := h.Dispatcher.StartLiveTrade(c.Request.Context(), sessionFrom(c), tgt)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Action states and history for a strategy
// @Tags lifecycle
// @Param type path string true "strategy type"
// @Param id path string true "strategy id"
// @Success 200 {object} apiResponse
// @Router /api/v1/strategies/{type}/{id}/actions [get]
func (h *LifecycleHandler) actions(c *gin.Context) {
	tgt, ok := h.target(c)
	if !ok {
		return
	}
	data := map[string]any{"states": h.Dispatcher.States(tgt.Type, tgt.StrategyID)}
	if h.Repo != nil {
		slug := tgt.Type.Slug()
		limit := intQuery(c, "limit", 20)
		items, err := h.Repo.ListActions(c.Request.Context(), repository.ListActionsParams{
			StrategyType: &slug,
			StrategyID:   &tgt.StrategyID,
			Kind:         stringQueryPtr(c, "kind"),
			Limit:        limit,
		})
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		data["history"] = items
	}
	Ok(c, data, nil)
}

// @Summary Fetch a bot's backtest result
// @Tags lifecycle
// @Param id path string true "bot id"
// @Success 200 {object} apiResponse
// @Router /api/v1/bots/{id}/backtest-result [get]
func (h *LifecycleHandler) backtestResult(c *gin.Context) {
	if h.Dispatcher == nil {
		Error(c, http.StatusInternalServerError, "dispatcher unavailable", nil)
		return
	}
	data, err := h.Dispatcher.FetchBacktestResult(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, data, nil)
}

func (h *LifecycleHandler) target(c *gin.Context) (lifecycle.Target, bool) {
	if h.Dispatcher == nil {
		Error(c, http.StatusInternalServerError, "dispatcher unavailable", nil)
		return lifecycle.Target{}, false
	}
	t, ok := parseType(c)
	if !ok {
		return lifecycle.Target{}, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return lifecycle.Target{}, false
	}
	return lifecycle.Target{Type: t, StrategyID: id}, true
}
