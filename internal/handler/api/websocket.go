package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/usecase"
	xhttp "ShrimpCast/pkg/http"
	applogger "ShrimpCast/pkg/logger"
)

type WSConfig struct {
	ReadLimit      int64
	PongWait       time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string // empty means same origin only
}

func (c WSConfig) withDefaults() WSConfig {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 8192
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

func (c WSConfig) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096}
	if len(c.AllowedOrigins) > 0 {
		allowed := c.AllowedOrigins
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowed, "*") {
				return true
			}
			o, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return slices.Contains(allowed, origin) || slices.Contains(allowed, o.Host)
		}
	}
	return u
}

// WebSocket runs a forecast session: every text frame is a ForecastRequest,
// every reply a ForecastReply, in request order.
func (h *ForecastHandler) WebSocket(c echo.Context) error {
	cfg := h.ws.withDefaults()
	conn, err := cfg.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}

	remote := c.RealIP()
	log := h.l.With(applogger.String("remote", remote))
	log.Debug("websocket session opened")

	ctx, cancel := context.WithCancel(context.Background())
	send := make(chan models.ForecastReply, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, cfg, send, cancel)
	}()

	h.readPump(ctx, conn, cfg, remote, send, log)
	close(send)
	<-done
	cancel()
	log.Debug("websocket session closed")
	return nil
}

func (h *ForecastHandler) readPump(ctx context.Context, conn *websocket.Conn, cfg WSConfig, remote string, send chan<- models.ForecastReply, log *applogger.Logger) {
	conn.SetReadLimit(cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", applogger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		if mt != websocket.TextMessage {
			continue
		}

		reply := h.handleFrame(ctx, data, remote)
		select {
		case send <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *ForecastHandler) handleFrame(ctx context.Context, data []byte, remote string) models.ForecastReply {
	var req models.ForecastRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return models.ForecastReply{Error: &models.ReplyError{
			Code:    xhttp.CodeInvalidInput,
			Message: "request must be a JSON object of numeric inputs: " + err.Error(),
		}}
	}
	if h.limiter != nil && !h.limiter.Allow(remote) {
		return models.ForecastReply{RequestID: req.RequestID, Error: &models.ReplyError{
			Code:    "ERR_RATE_LIMITED",
			Message: "too many forecast requests",
		}}
	}

	res, err := h.forecaster.Forecast(ctx, &req, usecase.SourceWebSocket)
	if err != nil {
		return models.ForecastReply{RequestID: req.RequestID, Error: usecase.ReplyError(err)}
	}
	return models.ForecastReply{RequestID: req.RequestID, Result: res}
}

// writePump owns all writes on conn and keeps it alive with pings.
func (h *ForecastHandler) writePump(conn *websocket.Conn, cfg WSConfig, send <-chan models.ForecastReply, cancel context.CancelFunc) {
	ticker := time.NewTicker(cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case reply, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				h.l.Debug("websocket write failed", applogger.Error(err))
				drain(send)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				drain(send)
				return
			}
		}
	}
}

// drain keeps the reader from blocking after the writer gave up.
func drain(send <-chan models.ForecastReply) {
	go func() {
		for range send {
		}
	}()
}
