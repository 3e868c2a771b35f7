// internal/app/features/members/viewedit.go
package members

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	memberstore "github.com/dalemusser/chapterhub/internal/app/store/members"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/app/system/txn"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.uber.org/zap"
)

type editRequest struct {
	FirstName         *string `json:"first_name" validate:"omitempty,min=1,max=100" label:"First name"`
	LastName          *string `json:"last_name" validate:"omitempty,min=1,max=100" label:"Last name"`
	Email             *string `json:"email" validate:"omitempty,email" label:"Email"`
	Phone             *string `json:"phone" validate:"omitempty,max=40" label:"Phone"`
	Gender            *string `json:"gender" validate:"omitempty,gender" label:"Gender"`
	Active            *bool   `json:"active"`
	Graduated         *bool   `json:"graduated"`
	IsCommitteeMember *bool   `json:"is_committee_member"`
}

func (e editRequest) update() memberstore.Update {
	u := memberstore.Update{
		FirstName:         e.FirstName,
		LastName:          e.LastName,
		Email:             e.Email,
		Phone:             e.Phone,
		Active:            e.Active,
		Graduated:         e.Graduated,
		IsCommitteeMember: e.IsCommitteeMember,
	}
	if e.Gender != nil {
		g, _ := models.ParseGender(*e.Gender)
		u.Gender = &g
	}
	return u
}

// HandleEdit changes the given fields of a member.
// PATCH /api/members/{id}
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	var req editRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.Update(ctx, id, req.update())
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

// HandleDeactivate takes a member out of rotation without deleting history.
// POST /api/members/{id}/deactivate
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inactive := false
	m, err := h.Members.Update(ctx, id, memberstore.Update{Active: &inactive})
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	h.Log.Info("member deactivated", zap.String("member_id", id.Hex()))
	shared.WriteJSON(w, http.StatusOK, m)
}

// HandleDelete removes a member with every assignment, log and transfer
// row that references it, in one transaction where the server allows.
// DELETE /api/members/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var res memberstore.DeleteResult
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		res, err = h.Members.Delete(ctx, id)
		if err == nil && res.Members == 0 {
			err = outreach.ErrNotFound
		}
		return err
	})
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}

	h.Log.Info("member deleted",
		zap.String("member_id", id.Hex()),
		zap.Int64("prayer_assignments", res.Prayer),
		zap.Int64("communication_assignments", res.Communication),
		zap.Int64("communication_logs", res.Logs),
		zap.Int64("transfer_history", res.Transfers))
	shared.WriteJSON(w, http.StatusOK, res)
}
