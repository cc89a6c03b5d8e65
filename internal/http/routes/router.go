// Package routes assembles the chi router: middleware chain first, then
// the public and admin route trees under /api/v1.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shedboard/shedboard-api/internal/auth"
	"github.com/shedboard/shedboard-api/internal/config"
	"github.com/shedboard/shedboard-api/internal/http/handlers"
	"github.com/shedboard/shedboard-api/internal/http/mw"
	"github.com/shedboard/shedboard-api/internal/repository"
)

// New builds the full router. Order matters: request id and recovery
// wrap everything, the tenant resolver runs before any rate limiting so
// buckets key on the club, and auth runs only on the admin subtree.
func New(cfg *config.ServerConfig, h *handlers.Handler, repos *repository.Repositories, signer *auth.TokenSigner, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(1 * 1024 * 1024))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Throttle(100))
	r.Use(mw.SecurityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  mw.AllowOrigin(repos.Club, cfg.BaseDomain),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health stays outside the tenant resolver so platform monitors can
	// probe by IP or any hostname.
	r.Get("/api/v1/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(mw.TenantResolver(repos.Club, mw.TenantConfig{
			BaseDomain:       cfg.BaseDomain,
			MarketingURL:     cfg.MarketingURL,
			AllowLocalhost:   cfg.AllowLocalhost,
			DevClubSubdomain: cfg.DevClubSubdomain,
		}))

		r.Route("/api/v1", func(r chi.Router) {
			// Public lane.
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimitByClub("public", cfg.PublicRateLimitPerMin))
				r.Get("/boats", h.ListBoats)
				r.Get("/boats/{id}", h.GetBoat)
				r.Get("/bookings", h.ListBookings)
				r.Get("/config", h.GetConfig)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(mw.RateLimitByClub("admin", cfg.AdminRateLimitPerMin))

				r.Group(func(r chi.Router) {
					r.Use(mw.RateLimitLoginByIP(cfg.LoginRateLimitPerIPPerMin))
					r.Post("/login", h.Login)
				})

				r.Group(func(r chi.Router) {
					r.Use(mw.Auth(signer, repos.User))
					r.Get("/status", h.Status)
					r.Put("/credentials", h.UpdateCredentials)
					r.Put("/display", h.UpdateDisplay)
					r.Get("/config", h.GetAdminConfig)
					r.Put("/config", h.UpdateAdminConfig)
					r.Post("/sync", h.Sync)
				})
			})
		})
	})

	return r
}
