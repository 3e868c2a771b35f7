// internal/app/features/communication/routes.go
package communication

import (
	"github.com/dalemusser/chapterhub/internal/app/system/auth"
	"github.com/dalemusser/chapterhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the communication endpoints. Typically:
// r.Mount("/api/communication", communication.Routes(handler, sm))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/mine", h.ServeMine)
		pr.Get("/members/{id}/history", h.ServeHistory)
		pr.Patch("/logs/{id}", h.HandleUpdateLog)

		pr.Get("/{id}/logs", h.ServeLogs)
		pr.Post("/{id}/success", h.HandleSuccess)
		pr.Post("/{id}/attempt", h.HandleAttempt)
		pr.Post("/{id}/transfer", h.HandleTransfer)
		pr.Post("/{id}/claim", h.HandleClaim)
		pr.Post("/{id}/release", h.HandleRelease)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireRole(authz.AdminRoles...))

		ar.Post("/generate", h.HandleGenerate)
		ar.Post("/auto-transfer", h.HandleAutoTransfer)
		ar.Post("/members/{id}/assign", h.HandleAssignMember)
	})

	return r
}
