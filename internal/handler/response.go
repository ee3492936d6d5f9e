package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/lifecycle"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
	"github.com/safin-krmavi/Bulltrek/internal/submission"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps err to a status and writes it. The message is always the
// user-facing text of err.
func Fail(c *gin.Context, err error) {
	var verr *strategy.ValidationError
	if errors.As(err, &verr) {
		Error(c, http.StatusUnprocessableEntity, err.Error(), map[string]any{
			"fields":   verr.Fields,
			"problems": verr.Problems,
		})
		return
	}
	switch {
	case errors.Is(err, session.ErrNotLoggedIn):
		Error(c, http.StatusUnauthorized, err.Error(), nil)
		return
	case errors.Is(err, session.ErrNoBaseURL):
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	case errors.Is(err, lifecycle.ErrActionInFlight):
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	case errors.Is(err, submission.ErrNoBrokerage),
		errors.Is(err, lifecycle.ErrNoStrategyID),
		errors.Is(err, lifecycle.ErrNoBot):
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		Error(c, status, err.Error(), map[string]any{"upstream_status": apiErr.Status})
		return
	}
	Error(c, http.StatusBadGateway, err.Error(), nil)
}
