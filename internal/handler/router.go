package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/event-tracker/internal/middleware"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Health        *HealthHandler
	Messages      *MessageHandler
	Conversations *ConversationHandler
	Facets        *FacetHandler

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	AllowedOrigins    []string
	Logger            *logger.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", cfg.Messages.List)
			r.Get("/duplicate-check", cfg.Messages.DuplicateCheck)
			r.Get("/{requestId}", cfg.Messages.Get)
			r.Get("/{requestId}/events", cfg.Messages.Events)
		})

		r.Get("/conversations", cfg.Conversations.List)
		r.Get("/filter-values", cfg.Facets.Get)

		r.With(middleware.RequireScope(middleware.ScopeAdmin)).
			Post("/admin/filter-values/refresh", cfg.Facets.Refresh)
	})

	return r
}
