// internal/app/features/communication/handler.go
package communication

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/app/system/transfer"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler exposes the communication transfer engine.
type Handler struct {
	Engine *transfer.Engine
	Log    *zap.Logger
}

func NewHandler(engine *transfer.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// contactRequest is the body of success, attempt and log edits.
type contactRequest struct {
	Method string `json:"method" validate:"omitempty,contactmethod" label:"Method"`
	Notes  string `json:"notes" validate:"max=2000" label:"Notes"`
}

func (c contactRequest) contact() transfer.Contact {
	return transfer.Contact{Method: c.Method, Notes: c.Notes}
}

// HandleGenerate gives every active member a first assignment.
// POST /api/communication/generate[?preview=1]
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "communication generate")
	defer cancel()

	if shared.Preview(r) {
		rows, err := h.Engine.PreviewInitial(ctx)
		if err != nil {
			uierrors.Render(w, h.Log, err)
			return
		}
		if rows == nil {
			rows = []transfer.PreviewRow{}
		}
		shared.WriteJSON(w, http.StatusOK, previewResponse{Rows: rows})
		return
	}

	res, err := h.Engine.GenerateInitial(ctx)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, res)
}

type previewResponse struct {
	Rows []transfer.PreviewRow `json:"rows"`
}

// HandleAutoTransfer moves stale assignments. threshold overrides the
// stored unresponsive threshold for this run only.
// POST /api/communication/auto-transfer[?threshold=N&preview=1]
func (h *Handler) HandleAutoTransfer(w http.ResponseWriter, r *http.Request) {
	threshold, ok := shared.IntQuery(w, r, "threshold")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "auto transfer")
	defer cancel()

	if shared.Preview(r) {
		pv, err := h.Engine.PreviewAutoTransfers(ctx, threshold)
		if err != nil {
			uierrors.Render(w, h.Log, err)
			return
		}
		if pv.Rows == nil {
			pv.Rows = []transfer.AutoPreviewRow{}
		}
		shared.WriteJSON(w, http.StatusOK, pv)
		return
	}

	res, err := h.Engine.ProcessAutoTransfers(ctx, threshold)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

// HandleAssignMember gives a newly added member an assignment.
// POST /api/communication/members/{id}/assign
func (h *Handler) HandleAssignMember(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	a, err := h.Engine.AssignNewMember(ctx, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, a)
}

// ServeMine lists the caller's current assignments.
// GET /api/communication/mine
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.Engine.ListMine(ctx, caller)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	if rows == nil {
		rows = []models.CommunicationAssignment{}
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Assignments: rows})
}

type listResponse struct {
	Assignments []models.CommunicationAssignment `json:"assignments"`
}

// HandleSuccess records a successful contact.
// POST /api/communication/{id}/success
func (h *Handler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	h.contactOp(w, r, h.Engine.MarkSuccessful)
}

// HandleAttempt records an unsuccessful contact.
// POST /api/communication/{id}/attempt
func (h *Handler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	h.contactOp(w, r, h.Engine.LogAttempt)
}

type contactFunc func(ctx context.Context, caller outreach.Caller, id primitive.ObjectID, c transfer.Contact) (models.CommunicationAssignment, error)

func (h *Handler) contactOp(w http.ResponseWriter, r *http.Request, op contactFunc) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	var req contactRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	a, err := op(ctx, caller, id, req.contact())
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, a)
}

// HandleTransfer hands an assignment to another committee member now.
// POST /api/communication/{id}/transfer
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Engine.Transfer(ctx, caller, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// HandleClaim pins an assignment to the caller.
// POST /api/communication/{id}/claim
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	h.claimOp(w, r, h.Engine.Claim)
}

// HandleRelease clears the caller's claim.
// POST /api/communication/{id}/release
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	h.claimOp(w, r, h.Engine.Release)
}

type claimFunc func(ctx context.Context, caller outreach.Caller, id primitive.ObjectID) (models.CommunicationAssignment, error)

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

// ServeLogs lists the contact log of an assignment.
// GET /api/communication/{id}/logs
func (h *Handler) ServeLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	logs, err := h.Engine.Logs(ctx, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	if logs == nil {
		logs = []models.CommunicationLog{}
	}
	shared.WriteJSON(w, http.StatusOK, logsResponse{Logs: logs})
}

type logsResponse struct {
	Logs []models.CommunicationLog `json:"logs"`
}

// HandleUpdateLog corrects the method and notes of the caller's own log.
// PATCH /api/communication/logs/{id}
func (h *Handler) HandleUpdateLog(w http.ResponseWriter, r *http.Request) {
	caller, ok := shared.Caller(w, r)
	if !ok {
		return
	}
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	var req contactRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Engine.UpdateLog(ctx, caller, id, req.contact())
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, l)
}

// ServeHistory returns a member's transfer ledger.
// GET /api/communication/members/{id}/history
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Engine.History(ctx, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	if recs == nil {
		recs = []models.TransferRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, historyResponse{MemberID: id, Transfers: recs})
}

type historyResponse struct {
	MemberID  primitive.ObjectID      `json:"member_id"`
	Transfers []models.TransferRecord `json:"transfers"`
}
