// internal/app/features/committee/handler.go
package committee

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	committeestore "github.com/dalemusser/chapterhub/internal/app/store/committee"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler manages committee accounts.
type Handler struct {
	Log   *zap.Logger
	Staff *committeestore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Staff: committeestore.New(db)}
}

type inviteRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100" label:"First name"`
	LastName  string `json:"last_name" validate:"required,max=100" label:"Last name"`
	Email     string `json:"email" validate:"required,email" label:"Email"`
	Gender    string `json:"gender" validate:"required,gender" label:"Gender"`
	Role      string `json:"role" validate:"omitempty,role" label:"Role"`
}

type activateRequest struct {
	AuthSubject string `json:"auth_subject" validate:"max=200" label:"Identity"`
}

type editRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100" label:"First name"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100" label:"Last name"`
	Gender    *string `json:"gender" validate:"omitempty,gender" label:"Gender"`
	Role      *string `json:"role" validate:"omitempty,role" label:"Role"`
}

type listResponse struct {
	CommitteeMembers []models.CommitteeMember `json:"committee_members"`
}

// ServeList lists every committee member by name.
// GET /api/committee
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Staff.List(ctx)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	if list == nil {
		list = []models.CommitteeMember{}
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{CommitteeMembers: list})
}

// HandleInvite stores a pending committee member.
// POST /api/committee
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	gender, _ := models.ParseGender(req.Gender)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cm, err := h.Staff.Invite(ctx, models.CommitteeMember{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Gender:    gender,
		Role:      req.Role,
	})
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	h.Log.Info("committee member invited", zap.String("committee_member_id", cm.ID.Hex()), zap.String("role", cm.Role))
	shared.WriteJSON(w, http.StatusCreated, cm)
}

// HandleActivate links an identity and opens the account.
// POST /api/committee/{id}/activate
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	var req activateRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cm, err := h.Staff.Activate(ctx, id, strings.TrimSpace(req.AuthSubject))
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	h.Log.Info("committee member activated", zap.String("committee_member_id", id.Hex()))
	shared.WriteJSON(w, http.StatusOK, cm)
}

// HandleDeactivate disables the account. Rotation and transfers stop
// routing to it; its open assignments stay until moved.
// POST /api/committee/{id}/deactivate
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cm, err := h.Staff.Deactivate(ctx, id)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	h.Log.Info("committee member deactivated", zap.String("committee_member_id", id.Hex()))
	shared.WriteJSON(w, http.StatusOK, cm)
}

// HandleEdit changes name, gender or role.
// PATCH /api/committee/{id}
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, "id")
	if !ok {
		return
	}
	var req editRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	u := committeestore.Update{FirstName: req.FirstName, LastName: req.LastName, Role: req.Role}
	if req.Gender != nil {
		g, _ := models.ParseGender(*req.Gender)
		u.Gender = &g
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cm, err := h.Staff.Update(ctx, id, u)
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cm)
}
