// Package http wires the chi route tree and the HTTP server.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	OrganizationHandler *handlers.OrganizationHandler
	PlanHandler         *handlers.PlanHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	UserHandler         *handlers.UserHandler
	SearchHandler       *handlers.SearchHandler
	AnalysisHandler     *handlers.AnalysisHandler
	QuotaHandler        *handlers.QuotaHandler
	HealthHandler       *handlers.HealthHandler

	// Middleware
	AuthMiddleware      *middleware.AuthMiddleware
	CORSConfig          *middleware.CORSConfig
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Infrastructure
	Logger          logging.Logger
	MetricsHandler  http.Handler
	MetricsRecorder middleware.HTTPRecorder
}

// NewRouter constructs the route tree: public probes, the metrics endpoint,
// an authenticated /api/v1 group for end users, and an admin-only subtree
// for billing administration.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORSConfig != nil {
		r.Use(middleware.CORS(*cfg.CORSConfig))
	}
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	}
	if cfg.MetricsRecorder != nil {
		r.Use(middleware.Metrics(cfg.MetricsRecorder))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.Handler)
		}
		if cfg.RateLimitMiddleware != nil {
			api.Use(cfg.RateLimitMiddleware.Handler)
		}

		registerSearchRoutes(api, cfg.SearchHandler)
		registerAnalysisRoutes(api, cfg.AnalysisHandler)
		registerQuotaRoutes(api, cfg.QuotaHandler)
		if cfg.UserHandler != nil {
			api.Get("/users/me", cfg.UserHandler.Me)
		}

		api.Group(func(admin chi.Router) {
			if cfg.AuthMiddleware != nil {
				admin.Use(cfg.AuthMiddleware.RequireAdmin)
			}
			registerOrganizationRoutes(admin, cfg.OrganizationHandler)
			registerPlanRoutes(admin, cfg.PlanHandler)
			registerSubscriptionRoutes(admin, cfg.SubscriptionHandler)
			registerUserRoutes(admin, cfg.UserHandler)
		})
	})

	return r
}

func registerSearchRoutes(r chi.Router, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	r.Route("/search", func(sr chi.Router) {
		sr.Post("/", h.Submit)
		sr.Get("/history", h.History)
		sr.Get("/jobs/{jobID}", h.Status)
	})
}

func registerAnalysisRoutes(r chi.Router, h *handlers.AnalysisHandler) {
	if h == nil {
		return
	}
	r.Route("/analysis", func(ar chi.Router) {
		ar.Post("/analyze", h.Analyze)
		ar.Post("/chat", h.Chat)
	})
}

func registerQuotaRoutes(r chi.Router, h *handlers.QuotaHandler) {
	if h == nil {
		return
	}
	r.Get("/quota/usage", h.Usage)
}

func registerOrganizationRoutes(r chi.Router, h *handlers.OrganizationHandler) {
	if h == nil {
		return
	}
	r.Route("/organizations", func(or chi.Router) {
		or.Get("/", h.List)
		or.Post("/", h.Create)

		or.Route("/{orgID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Put("/", h.Update)
			item.Put("/status", h.SetStatus)
		})
	})
}

func registerPlanRoutes(r chi.Router, h *handlers.PlanHandler) {
	if h == nil {
		return
	}
	r.Route("/plans", func(pr chi.Router) {
		pr.Get("/", h.List)
		pr.Post("/", h.Create)

		pr.Route("/{planID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Put("/", h.Update)
			item.Delete("/", h.Delete)
		})
	})
}

func registerSubscriptionRoutes(r chi.Router, h *handlers.SubscriptionHandler) {
	if h == nil {
		return
	}
	r.Route("/subscriptions", func(sr chi.Router) {
		sr.Get("/", h.List)
		sr.Post("/", h.Create)

		sr.Route("/{subID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Put("/", h.Update)
			item.Delete("/", h.Delete)
			item.Post("/pause", h.Pause)
			item.Post("/resume", h.Resume)
			item.Post("/recount", h.Recount)

			item.Post("/users", h.AssignUser)
			item.Delete("/users/{userID}", h.RemoveUser)
			item.Post("/migrate", h.MigrateUser)
		})
	})
}

func registerUserRoutes(r chi.Router, h *handlers.UserHandler) {
	if h == nil {
		return
	}
	r.Route("/users", func(ur chi.Router) {
		ur.Get("/", h.ListByOrganization)
		ur.Get("/{userID}", h.Get)
		ur.Put("/{userID}", h.Upsert)
	})
}
