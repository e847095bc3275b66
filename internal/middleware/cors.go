package middleware

import (
	"net/http"

	"github.com/valyala/fasthttp"
)

const allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// CORS opens every route to any origin. The request Origin is reflected so
// credentialed requests keep working; preflights are answered with 204.
func CORS(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))
		if origin == "" {
			origin = "*"
		} else {
			ctx.Response.Header.Add("Vary", "Origin")
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
		}
		ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
		ctx.Response.Header.Set("Access-Control-Allow-Methods", allowMethods)

		if requested := ctx.Request.Header.Peek("Access-Control-Request-Headers"); len(requested) > 0 {
			ctx.Response.Header.SetBytesV("Access-Control-Allow-Headers", requested)
		} else {
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "*")
		}

		if ctx.IsOptions() && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
			ctx.SetStatusCode(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}
