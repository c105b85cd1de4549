/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/accounts/*   Account lifecycle, earning, redemption, history
  /api/admin/*      Manual credits, reversals, fleet sweep
  /api/reasons      Earn reason catalog
  /healthz          Liveness probe
  /metrics          Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.Signup)
			r.Get("/{id}", h.GetAccount)
			r.Post("/{id}/profile-complete", h.CompleteProfile)
			r.Post("/{id}/purchases", h.RecordPurchase)
			r.Post("/{id}/redemptions", h.RedeemPrize)
			r.Post("/{id}/sweep", h.SweepAccount)
			r.Get("/{id}/history", h.GetHistory)
			r.Get("/{id}/consistency", h.GetConsistency)
			r.Get("/{id}/spend-estimate", h.GetSpendEstimate)
			r.Delete("/{id}/entries/{entryID}", h.DeleteEntry)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/credits", h.AdminCredit)
			r.Post("/reversals", h.AdminReverse)
			r.Post("/sweep", h.AdminSweepAll)
		})

		// Catalog routes
		r.Get("/reasons", h.ListReasons)
	})

	// Operational surface
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
