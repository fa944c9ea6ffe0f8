package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	// API endpoints — auth applied when configured. The gateway binds to
	// loopback by default, so an unauthenticated local API is acceptable.
	r.Group(func(r chi.Router) {
		if g.config.RateLimit.RequestsPerMin > 0 {
			r.Use(rateLimitMiddleware(newRateLimiter(g.config.RateLimit.RequestsPerMin)))
		}
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth))
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/keywords", g.handleListKeywords())
			r.Post("/keywords", g.handleAddKeyword())
			r.Delete("/keywords/{phrase}", g.handleDeleteKeyword())
			r.Get("/history", g.handleListHistory())
			r.Get("/history/keywords", g.handleKeywordCounts())
		})
	})

	return r
}
