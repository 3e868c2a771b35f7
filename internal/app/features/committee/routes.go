// internal/app/features/committee/routes.go
package committee

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts committee administration under /api/committee.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.AdminRoles...))

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleInvite)
		pr.Patch("/{id}", h.HandleEdit)
		pr.Post("/{id}/activate", h.HandleActivate)
		pr.Post("/{id}/deactivate", h.HandleDeactivate)
	})
	return r
}
