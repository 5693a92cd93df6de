package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
	"github.com/linkhoard/linkhoard/internal/httpserver/handlers"
	"github.com/linkhoard/linkhoard/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Verifier, d.Logger))

		r.Get("/", handlers.ListBookmarks(d))
		r.Get("/count", handlers.CountBookmarks(d))

		// Mutations are throttled per user.
		r.Group(func(r chi.Router) {
			if d.RateLimitPerMin > 0 {
				r.Use(mw.RateLimit(mw.RateLimitConfig{
					Burst:           d.RateLimitPerMin,
					RefillPerMinute: d.RateLimitPerMin,
					TrustProxy:      d.TrustProxy,
				}))
			}
			r.Post("/", handlers.CreateBookmark(d))
			r.Patch("/{id}", handlers.UpdateBookmark(d))
			r.Delete("/{id}", handlers.DeleteBookmark(d))
		})
	})
}
