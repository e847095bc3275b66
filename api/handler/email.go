package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	notifyUC "github.com/fastygo/taskhub/usecase/notify"
)

// EmailHandler answers 200 with a result body whenever the request itself is
// well formed; mail failures are reported through the success flag.
type EmailHandler struct {
	baseHandler
	uc *notifyUC.UseCase
}

func NewEmailHandler(uc *notifyUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Mail task details
// @Tags email
// @Router /email/send [post]
func (h *EmailHandler) Send(ctx *fasthttp.RequestCtx) {
	var req transport.EmailRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondJSON(ctx, http.StatusOK, h.uc.SendTaskNotification(stdCtx, req.ToDomain()))
}

// @Summary List recent inbox messages
// @Tags email
// @Router /email/check/{protocol} [get]
func (h *EmailHandler) Check(ctx *fasthttp.RequestCtx) {
	raw, _ := ctx.UserValue("protocol").(string)
	protocol, err := domain.ParseMailProtocol(raw)
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.respondJSON(ctx, http.StatusOK, transport.NewInboxResponse(h.uc.ListRecentInbound(stdCtx, protocol)))
}
