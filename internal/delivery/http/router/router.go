package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/linkmark-service/internal/delivery/http/handler"
	"github.com/user/linkmark-service/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/pages", h.HandleOpenPage)
		r.Route("/pages/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetPage)
			r.Delete("/", h.HandleClosePage)
			r.Get("/info", h.HandleGetPageInfo)
			r.Post("/messages", h.HandlePageMessage)
			r.Post("/events", h.HandlePageEvent)
		})

		r.Post("/visits", h.HandleRecordVisit)

		r.Get("/settings", h.HandleGetSettings)
		r.Put("/settings", h.HandlePutSettings)
		r.Post("/settings/exclude", h.HandleExcludeSite)
	})

	return r
}
