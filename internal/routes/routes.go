package routes

import (
	"github.com/BradenHooton/staffguard/internal/auth"
	"github.com/BradenHooton/staffguard/internal/handlers"
	"github.com/BradenHooton/staffguard/internal/middleware"
	"github.com/BradenHooton/staffguard/internal/models"
	"github.com/go-chi/chi/v5"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Login     *handlers.LoginHandler
	Sessions  *handlers.SessionHandler
	Accounts  *handlers.AccountHandler
	Passwords *handlers.PasswordHandler
	Health    *handlers.HealthHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	serviceRateLimit middleware.RateLimitConfig,
) {
	// Public route for load balancers
	router.Get("/health", h.Health.Health)

	router.Route("/v1", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))
		r.Use(middleware.RateLimitByService(serviceRateLimit))

		r.Post("/login/evaluate", h.Login.Evaluate)
		r.Post("/login/outcome", h.Login.Outcome)
		r.Post("/rate-limits/{endpoint}", h.Login.CheckRateLimit)

		r.Post("/sessions/{id}/activity", h.Sessions.Activity)
		r.Get("/sessions/{id}/validate", h.Sessions.Validate)
		r.Delete("/sessions/{id}", h.Sessions.Delete)

		r.Get("/users/{userID}/sessions", h.Sessions.ListUserSessions)
		r.Delete("/users/{userID}/sessions", h.Sessions.DeleteUserSessions)

		r.Get("/accounts/lockout", h.Accounts.GetLockout)

		r.Post("/passwords/validate", h.Passwords.Validate)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.ServiceRoleAdmin))
			r.Post("/admin/accounts/unlock", h.Accounts.Unlock)
		})
	})
}
