package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

const (
	msgHealthy   = "API is running"
	msgUnhealthy = "Database connection failed"
)

// StatusProbe checks dependencies on demand.
type StatusProbe interface {
	Refresh(ctx context.Context) monitor.Status
}

type HealthHandler struct {
	baseHandler
	probe StatusProbe
}

func NewHealthHandler(probe StatusProbe, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		probe:       probe,
	}
}

// @Summary Health check
// @Tags health
// @Router /api/health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status := h.probe.Refresh(stdCtx)
	if status.PostgreSQL {
		h.respondJSON(ctx, http.StatusOK, transport.HealthResponse{Status: transport.HealthOK, Message: msgHealthy, Services: &status})
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.HealthResponse{Status: transport.HealthError, Message: msgUnhealthy, Services: &status})
}
