package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pocket-calculator/internal/calculator"
	"pocket-calculator/internal/handlers"
	"pocket-calculator/internal/observability"
)

// NewRouter mounts the health check, the metrics handler and the calculator
// API behind the request id, tracing and access log middlewares.
func NewRouter(calc *calculator.Handler, metrics http.Handler) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", metrics)

	calculator.RegisterRoutes(r, calc)

	return r
}
