package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/pkg/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	stdCtx, cancel := context.WithCancel(context.Background())
	return httpcontext.Enrich(stdCtx, ctx), cancel
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		ctx.Error(`{"error":"internal error","code":"INTERNAL"}`, http.StatusInternalServerError)
		ctx.Response.Header.SetContentType("application/json")
		return
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func (h baseHandler) respondError(ctx context.Context, reqCtx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		logger.WithRequestID(ctx, h.logger).Error("request failed",
			zap.String("path", string(reqCtx.Path())),
			zap.Error(err))
		message = "internal error"
	case http.StatusServiceUnavailable:
		logger.WithRequestID(ctx, h.logger).Warn("store unavailable",
			zap.String("path", string(reqCtx.Path())),
			zap.Error(err))
		message = domain.ErrStoreUnavailable.Message
	}
	h.respondJSON(reqCtx, status, transport.NewError(code, message))
}

func (h baseHandler) respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(domain.ErrCodeInvalid, message))
}

// decode unmarshals the request body into dst and validates it. On failure a
// 400 response has already been written.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.respondInvalid(ctx, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid payload"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func pathID(ctx *fasthttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func mapError(err error) (int, domain.ErrorCode) {
	switch code := domain.CodeOf(err); code {
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized, code
	case domain.ErrCodeForbidden:
		return http.StatusForbidden, code
	case domain.ErrCodeInvalid:
		return http.StatusBadRequest, code
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, code
	case domain.ErrCodeConflict:
		return http.StatusConflict, code
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable, code
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternal
	}
}
