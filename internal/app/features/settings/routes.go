// internal/app/features/settings/routes.go
package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the settings routes on r. Writes additionally pass
// through admin.
func (h *Handler) MountRoutes(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/", h.ServeSettings)
	r.With(admin).Put("/", h.HandleSettings)
}
