// internal/app/features/prayer/handler.go
package prayer

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/rotation"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler exposes the prayer rotation engine.
type Handler struct {
	Engine *rotation.Engine
	Log    *zap.Logger
}

func NewHandler(engine *rotation.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

func (h *Handler) period(p *models.Period) models.Period {
	if p != nil {
		return *p
	}
	return h.Engine.CurrentPeriod()
}

// activePeriod defaults to the month staff are praying through. Reads fall
// back to the current month when nothing has been generated yet.
func (h *Handler) activePeriod(ctx context.Context, p *models.Period, read bool) (models.Period, error) {
	if p != nil {
		return *p, nil
	}
	ap, err := h.Engine.ActivePeriod(ctx)
	if read && errors.Is(err, outreach.ErrNotRotated) {
		return h.Engine.CurrentPeriod(), nil
	}
	return ap, err
}

// HandleGenerate creates the first month of assignments.
// POST /api/prayer/generate[?month=YYYY-MM&preview=1]
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	month, ok := shared.MonthQuery(w, r)
	if !ok {
		return
	}
	p := h.period(month)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "prayer generate")
	defer cancel()

	if shared.Preview(r) {
		pv, err := h.Engine.PreviewInitial(ctx, p)
		if err != nil {
			uierrors.Render(w, h.Log, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, pv)
		return
	}

	res, err := h.Engine.GenerateInitial(ctx, p)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, res)
}

// HandleRotate rotates into the given month, or the current one.
// POST /api/prayer/rotate[?month=YYYY-MM&preview=1]
func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	month, ok := shared.MonthQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "prayer rotate")
	defer cancel()

	if shared.Preview(r) {
		pv, err := h.Engine.PreviewRotation(ctx, month)
		if err != nil {
			uierrors.Render(w, h.Log, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, pv)
		return
	}

	res, err := h.Engine.RotateBuckets(ctx, month)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

// HandleAssignMember gives a member added mid-month a prayer assignment.
// POST /api/prayer/members/{id}/assign[?month=YYYY-MM]
func (h *Handler) HandleAssignMember(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	month, ok := shared.MonthQuery(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.activePeriod(ctx, month, false)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	a, err := h.Engine.AssignNewMember(ctx, id, p)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, a)
}

// ServeList lists every assignment of a month, the active one by default.
// GET /api/prayer[?month=YYYY-MM]
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	month, ok := shared.MonthQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.activePeriod(ctx, month, true)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	rows, err := h.Engine.ListForPeriod(ctx, p)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Assignments: nonNil(rows)})
}

// ServeMine lists the caller's assignments for a month.
// GET /api/prayer/mine[?month=YYYY-MM]
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	month, ok := shared.MonthQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.activePeriod(ctx, month, true)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	rows, err := h.Engine.ListMine(ctx, caller, p)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Assignments: nonNil(rows)})
}

// HandleClaim pins an assignment to the caller.
// POST /api/prayer/{id}/claim
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	h.claimOp(w, r, h.Engine.Claim)
}

// HandleRelease clears the caller's claim.
// POST /api/prayer/{id}/release
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.claimOp(w, r, h.Engine.Release)
}

type claimFunc func(ctx context.Context, caller outreach.Caller, id primitive.ObjectID) (models.PrayerAssignment, error)

func (h *Handler) claimOp(w http.ResponseWriter, r *http.Request, op claimFunc) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := op(ctx, caller, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, a)
}

type listResponse struct {
	Assignments []models.PrayerAssignment `json:"assignments"`
}

func nonNil(rows []models.PrayerAssignment) []models.PrayerAssignment {
	if rows == nil {
		return []models.PrayerAssignment{}
	}
	return rows
}
