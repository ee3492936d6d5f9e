package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/safin-krmavi/Bulltrek/internal/notify"
)

type EventsHandler struct {
	Hub    *notify.Hub
	Logger *zap.Logger
}

func (h *EventsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/events", h.stream)
}

// @Summary Stream notification events over websocket
// @Tags events
// @Router /api/v1/events [get]
func (h *EventsHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "event stream unavailable", nil)
		return
	}
	conn, err := websocket.Accept(rawWriter(c), c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer func() { _ = conn.CloseNow() }()

	events, stop := h.Hub.Subscribe()
	defer stop()
	ctx := conn.CloseRead(c.Request.Context())

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// rawWriter returns the net/http writer under gin's. gin refuses to hijack
// once its own writer has flushed the 101 status, which the websocket
// handshake does before hijacking.
func rawWriter(c *gin.Context) http.ResponseWriter {
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return c.Writer
}
