package handler

import (
	"context"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/internal/realtime"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

// RealtimeHandler upgrades /ws requests and attaches them to the registry.
type RealtimeHandler struct {
	baseHandler
	appCtx       context.Context
	registry     *realtime.Registry
	upgrader     websocket.FastHTTPUpgrader
	writeTimeout time.Duration
}

// NewRealtimeHandler binds connections to appCtx so they end on shutdown.
func NewRealtimeHandler(appCtx context.Context, registry *realtime.Registry, writeTimeout time.Duration, logger *zap.Logger) *RealtimeHandler {
	if appCtx == nil {
		appCtx = context.Background()
	}
	return &RealtimeHandler{
		baseHandler:  newBaseHandler(nil, logger),
		appCtx:       appCtx,
		registry:     registry,
		writeTimeout: writeTimeout,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
		},
	}
}

// @Summary Live task updates
// @Tags realtime
// @Router /ws [get]
func (h *RealtimeHandler) Serve(ctx *fasthttp.RequestCtx) {
	reqID := httpcontext.RequestID(ctx)
	err := h.upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
		if err := realtime.Serve(h.appCtx, h.registry, ws, h.writeTimeout); err != nil {
			h.logger.Warn("websocket rejected", zap.String("request_id", reqID), zap.Error(err))
		}
	})
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.String("request_id", reqID), zap.Error(err))
	}
}
