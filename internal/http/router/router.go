package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch/internal/http/handlers"
	appmw "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/logx"
)

// New constructs a chi-based http.Handler with base middleware and routes.
func New(
	logger logx.Logger,
	rl *ratelimit.Middleware,
	base *handlers.Handlers,
	assign *handlers.AssignmentHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(appmw.Observability(logger))
	r.Use(chimw.Recoverer)
	r.Use(rl.Handler())
	r.Use(chimw.Timeout(15 * time.Second))

	r.Get("/ping", base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", assign.Create)
		r.Get("/", assign.List)
		r.Post("/bulk", assign.Bulk)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", assign.Get)
			r.Put("/", assign.AdminUpdate)
			r.Post("/accept", assign.Accept)
			r.Post("/reject", assign.Reject)
			r.Post("/pickup", assign.Pickup)
			r.Post("/delivered", assign.Delivered)
			r.Post("/cancel", assign.Cancel)
		})
	})

	r.NotFound(http.HandlerFunc(base.NotFound))

	return r
}
