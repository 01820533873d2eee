package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// Status pages
	r.Get("/", apiHandler.HomeHandler)
	r.Get("/health", apiHandler.HealthHandler)

	// Local API, used when no chat transport is configured
	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", apiHandler.AskHandler)
		r.Get("/portfolio/{userID}", apiHandler.PortfolioHandler)
		r.Get("/prices", apiHandler.PricesHandler)
		r.Get("/prices/{symbol}", apiHandler.PriceHandler)
	})

	return r
}
