// internal/app/features/prayer/routes.go
package prayer

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the prayer endpoints. Typically:
// r.Mount("/api/prayer", prayer.Routes(handler, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/mine", h.ServeMine)
		pr.Post("/{id}/claim", h.HandleClaim)
		pr.Post("/{id}/release", h.HandleRelease)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireRole(authz.AdminRoles...))

		ar.Get("/", h.ServeList)
		ar.Post("/generate", h.HandleGenerate)
		ar.Post("/rotate", h.HandleRotate)
		ar.Post("/members/{id}/assign", h.HandleAssignMember)
	})

	return r
}
