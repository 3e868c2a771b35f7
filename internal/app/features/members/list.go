// internal/app/features/members/list.go
package members

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	memberstore "github.com/dalemusser/chapterhub/internal/app/store/members"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
)

type listResponse struct {
	Members []models.Member `json:"members"`
	Count   int             `json:"count"`
}

// ServeList lists members sorted by last name.
// GET /api/members[?q=&gender=&include_inactive=1]
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := memberstore.Filter{Search: strings.TrimSpace(q.Get("q"))}
	if g := q.Get("gender"); g != "" {
		gender, ok := models.ParseGender(g)
		if !ok {
			uierrors.RenderBadRequest(w, "gender must be male or female")
			return
		}
		f.Gender = gender
	}
	f.IncludeInactive, _ = strconv.ParseBool(q.Get("include_inactive"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	list, err := h.Members.List(ctx, f)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Member{}
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Members: list, Count: len(list)})
}

// ServeView returns one member.
// GET /api/members/{id}
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}
