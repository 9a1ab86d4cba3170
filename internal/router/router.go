// Package router sets up all HTTP routes and middleware chains for
// Wanderplan. Routes are split into the authenticated planner API, the
// account endpoints and the anonymous share surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wanderplan/internal/handlers"
	"wanderplan/internal/middleware"
	"wanderplan/internal/session"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions *session.Store
	Auth     *handlers.Auth
	Presets  *handlers.Presets
	Shares   *handlers.Shares
	Exports  *handlers.Exports
	Health   http.HandlerFunc

	// ShareLimiter throttles the anonymous share surface; LoginLimiter
	// throttles credential checks. Either may be nil.
	ShareLimiter *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter

	// SecureCookies marks the CSRF cookie Secure (production).
	SecureCookies bool
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders)
	if d.Sessions != nil {
		r.Use(middleware.LoadSession(d.Sessions))
	}

	health := d.Health
	if health == nil {
		health = handlers.Health(nil)
	}
	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	// Anonymous share surface, token is the only credential.
	r.Route("/share/{token}", func(r chi.Router) {
		r.Use(limit(d.ShareLimiter))
		r.Get("/", d.Shares.Resolve)
		r.Get("/qr.png", d.Shares.QRCode)
		r.Get("/pdf", d.Exports.SharedPDF)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CSRF(d.SecureCookies))

		r.Route("/auth", func(r chi.Router) {
			r.With(limit(d.LoginLimiter)).Post("/register", d.Auth.Register)
			r.With(limit(d.LoginLimiter)).Post("/login", d.Auth.Login)
			r.With(limit(d.LoginLimiter)).Post("/2fa/verify", d.Auth.VerifyTOTP)
			r.Post("/logout", d.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", d.Auth.Me)
				r.Post("/2fa/setup", d.Auth.SetupTOTP)
				r.Post("/2fa/enable", d.Auth.EnableTOTP)
			})
		})

		r.Route("/planner", func(r chi.Router) {
			// Export by id or share token; anonymous callers get through
			// with a token or a public preset.
			r.Post("/{ref}/pdf", d.Exports.PDF)
			r.Post("/{ref}/pdf/link", d.Exports.Link)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)

				r.Post("/generate", d.Presets.Generate)

				r.Delete("/shares/{token}", d.Shares.Revoke)
			})

			r.Route("/presets", func(r chi.Router) {
				// Public presets are readable without a session under the
				// direct read policy; the service decides visibility.
				r.Get("/{id}", d.Presets.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAuth)
					r.Get("/", d.Presets.List)
					r.Post("/", d.Presets.Save)
					r.Delete("/{id}", d.Presets.Delete)
					r.Post("/{id}/share", d.Shares.Create)
					r.Get("/{id}/shares", d.Shares.List)
				})
			})
		})
	})

	return r
}

// limit returns the limiter's middleware, or a pass-through when nil.
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}
