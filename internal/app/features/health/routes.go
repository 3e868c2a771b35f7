package health

import "github.com/go-chi/chi/v5"

// Routes serves the health report at the mount point (/health).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
