package api

import (
	"net/http"
	"time"

	"github.com/distrubuted-game-mechanic/number-guess/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the middleware stack, the game routes and /metrics
func NewRouter(h *Handler, log *logger.Logger, requestTimeout time.Duration) http.Handler {
	router := chi.NewRouter()

	router.Use(RequestIDMiddleware)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(log))
	router.Use(MetricsMiddleware)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))

	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", h.Routes())

	return router
}
