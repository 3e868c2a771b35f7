// internal/app/features/claims/routes.go
package claims

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the claim endpoints under /api/claims.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleClaim)
		pr.Post("/release", h.HandleRelease)
	})
	return r
}
