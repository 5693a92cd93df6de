package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linkhoard/linkhoard/internal/httpserver/deps"
	"github.com/linkhoard/linkhoard/internal/httpserver/handlers"
	"github.com/linkhoard/linkhoard/internal/httpserver/mw"
)

func init() { Register(registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	admin := r.With(mw.AllowOnlyCIDRS(d.AdminCIDRS, d.TrustProxy, d.Logger))
	admin.Get("/readyz", handlers.Readyz(d))
	admin.Get("/infra", handlers.Infra(d))
	admin.Post("/revalidate", handlers.Revalidate(d))
}
