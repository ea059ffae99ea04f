// Package router sets up all HTTP routes and middleware chains for the
// bulletin service. Routes are organized into a public group (published
// notices, media files, health, metrics) and an authenticated admin API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fahndung/internal/handlers"
	"fahndung/internal/metrics"
	"fahndung/internal/middleware"
	"fahndung/internal/session"
)

// Options bundles the dependencies the router wires together.
type Options struct {
	Sessions  *session.Store
	Auth      *handlers.Auth
	Notices   *handlers.Notices
	Media     *handlers.Media
	Users     *handlers.Users
	MediaRoot string
	Secure    bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(opts.Sessions))

	// Health check and metrics — no auth, no CSRF.
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Public API — published notices only, response-cached.
	r.Route("/api/notices", func(r chi.Router) {
		r.Get("/", opts.Notices.PublicList)
		r.Get("/{slug}", opts.Notices.PublicGet)
	})

	// Media files — served straight from the media root.
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.MediaRoot)))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	// Admin API — rate-limited login, session auth, CSRF on mutations.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(opts.Secure))

		// Login is rate-limited separately to slow down credential stuffing.
		loginLimiter := middleware.NewRateLimiter(10, time.Minute)
		r.With(loginLimiter.Middleware).Post("/login", opts.Auth.Login)
		r.Post("/logout", opts.Auth.Logout)

		// 2FA — requires auth but NOT completed verification.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", opts.Auth.Me)
			r.Post("/2fa/setup", opts.Auth.TwoFASetup)
			r.Post("/2fa/verify", opts.Auth.TwoFAVerify)
		})

		// Authenticated + 2FA-verified admin area.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			// Notices
			r.Route("/notices", func(r chi.Router) {
				r.Get("/", opts.Notices.List)
				r.Get("/search", opts.Notices.Search)
				r.Post("/", opts.Notices.Create)
				r.Get("/{id}", opts.Notices.Get)
				r.Put("/{id}", opts.Notices.Update)
				r.Post("/{id}/publish", opts.Notices.Publish)
				r.Post("/{id}/close", opts.Notices.Close)
				r.Delete("/{id}", opts.Notices.Delete)
			})

			// Media library
			r.Route("/media", func(r chi.Router) {
				r.Get("/", opts.Media.List)
				r.Post("/", opts.Media.Upload)
				r.Get("/search", opts.Media.Search)
				r.Get("/by-tags", opts.Media.ByTags)
				r.Get("/tags", opts.Media.Tags)
				r.Get("/directories", opts.Media.Directories)
				r.Get("/{id}", opts.Media.Get)
				r.Patch("/{id}", opts.Media.Update)
				r.Delete("/{id}", opts.Media.Delete)
				r.Post("/{id}/edit", opts.Media.Edit)
				r.Post("/{id}/move", opts.Media.Move)
				r.Post("/{id}/optimize", opts.Media.Optimize)
				r.Get("/{id}/original", opts.Media.Original)
				r.Get("/{id}/original-url", opts.Media.OriginalURL)
			})

			// User management — admin only
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", opts.Users.List)
				r.Post("/", opts.Users.Create)
				r.Post("/{id}/reset-2fa", opts.Users.ResetTOTP)
				r.Delete("/{id}", opts.Users.Delete)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
