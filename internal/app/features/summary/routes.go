// internal/app/features/summary/routes.go
package summary

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the summary under /api/summary.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.AdminRoles...))
		pr.Get("/", h.ServeSummary)
	})
	return r
}
