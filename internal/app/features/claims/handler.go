// internal/app/features/claims/handler.go
package claims

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	claimsvc "github.com/dalemusser/chapterhub/internal/app/system/claims"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Handler exposes member-level claims across both assignment kinds.
type Handler struct {
	Service *claimsvc.Service
	Log     *zap.Logger
}

func NewHandler(svc *claimsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Service: svc, Log: logger}
}

// HandleClaim claims a member for the requested facets.
// POST /api/claims
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Service.ClaimMember)
}

// HandleRelease releases the caller's claims on a member.
// POST /api/claims/release
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Service.ReleaseClaim)
}

type opFunc func(ctx context.Context, caller outreach.Caller, req claimsvc.Request) (claimsvc.Result, error)

// serve writes 200 when every facet went through, 207 when only some did,
// and the status of the first failure otherwise. The body always carries
// the per-facet report.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, op opFunc) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	var req claimsvc.Request
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := op(ctx, caller, req)
	switch {
	case err == nil:
		shared.WriteJSON(w, http.StatusOK, res)
	case len(res.Facets) == 0:
		uierrors.Render(w, h.Log, err)
	case res.Succeeded() > 0:
		shared.WriteJSON(w, http.StatusMultiStatus, res)
	default:
		status := uierrors.StatusFor(multierr.Errors(err)[0])
		if status == http.StatusInternalServerError {
			h.Log.Error("claim request failed", zap.Error(err))
		}
		shared.WriteJSON(w, status, res)
	}
}
