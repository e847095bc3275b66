package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskhub/api/handler"
)

type Handlers struct {
	Task     *apiHandler.TaskHandler
	Email    *apiHandler.EmailHandler
	Health   *apiHandler.HealthHandler
	Realtime *apiHandler.RealtimeHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// New registers every route. auth wraps the task, email and websocket routes;
// the health check is always public.
func New(handlers Handlers, auth Middleware) *router.Router {
	if auth == nil {
		auth = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	r := router.New()

	r.GET("/api/health", handlers.Health.Check)

	r.GET("/tasks", auth(handlers.Task.GetTasks))
	r.POST("/tasks", auth(handlers.Task.CreateTask))
	r.GET("/tasks/{id}", auth(handlers.Task.GetTask))
	r.PUT("/tasks/{id}", auth(handlers.Task.UpdateTask))
	r.DELETE("/tasks/{id}", auth(handlers.Task.DeleteTask))

	r.POST("/email/send", auth(handlers.Email.Send))
	r.GET("/email/check/{protocol}", auth(handlers.Email.Check))

	r.GET("/ws", auth(handlers.Realtime.Serve))

	return r
}

// Chain wraps h with the given middleware; the first one runs outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
