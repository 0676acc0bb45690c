package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", s.handleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/validate-url", s.handleValidateURL)
		r.Post("/track", s.handleTrack)
		r.Post("/update-prices", s.handleUpdatePrices)
		r.Get("/status", s.handleStatusRequest)
		r.Get("/products", s.handleProducts)
		r.Get("/products/{id}/history", s.handlePriceHistory)
	})

	return r
}
