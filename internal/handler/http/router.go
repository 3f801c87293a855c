package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkoval/identity-service/internal/service"
	"github.com/dkoval/identity-service/pkg/health"
	"github.com/dkoval/identity-service/pkg/middleware"
)

// RouterConfig holds the knobs the router needs beyond its dependencies.
type RouterConfig struct {
	CORS           CORSConfig
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	userService *service.UserService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("identity"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(userService, logger)
	adminHandler := NewAdminHandler(userService, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Endpoints requiring an authenticated caller
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(userService))

			r.Get("/me", authHandler.GetMe)
			r.With(ContentTypeJSON).Patch("/me", authHandler.UpdateMe)

			// Administrative endpoints
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/users", adminHandler.ListUsers)
				r.Delete("/users/{id}", adminHandler.DeleteUser)
			})
		})
	})

	return r
}
