package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
	"github.com/linkhoard/linkhoard/internal/httpserver/handlers"
	"github.com/linkhoard/linkhoard/internal/httpserver/mw"
)

func init() { Register(registerStats) }

func registerStats(r chi.Router, d deps.Deps) {
	r.With(mw.RequireAuth(d.Verifier, d.Logger)).Get("/api/stats", handlers.Stats(d))
}
