// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all member routes under the path where the caller mounts it.
// Typically: r.Mount("/api/members", members.Routes(handler, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.AdminRoles...))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		pr.Get("/{id}", h.ServeView)
		pr.Patch("/{id}", h.HandleEdit)
		pr.Post("/{id}/deactivate", h.HandleDeactivate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
