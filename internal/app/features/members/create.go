// internal/app/features/members/create.go
package members

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/chapterhub/internal/app/features/errors"
	"github.com/dalemusser/chapterhub/internal/app/features/shared"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/timeouts"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	FirstName         string `json:"first_name" validate:"required,max=100" label:"First name"`
	LastName          string `json:"last_name" validate:"required,max=100" label:"Last name"`
	Email             string `json:"email" validate:"omitempty,email" label:"Email"`
	Phone             string `json:"phone" validate:"max=40" label:"Phone"`
	Gender            string `json:"gender" validate:"required,gender" label:"Gender"`
	IsCommitteeMember bool   `json:"is_committee_member"`
	// Assign places the member into the active prayer month and gives
	// them a communication owner right away.
	Assign bool `json:"assign"`
}

type assignOutcome struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type createResponse struct {
	Member        models.Member                   `json:"member"`
	Prayer        *models.PrayerAssignment        `json:"prayer,omitempty"`
	Communication *models.CommunicationAssignment `json:"communication,omitempty"`
	Assignments   map[string]assignOutcome        `json:"assignments,omitempty"`
}

func outcome(err error) assignOutcome {
	if err == nil {
		return assignOutcome{OK: true}
	}
	return assignOutcome{Code: outreach.Code(err), Error: err.Error()}
}

// HandleCreate adds a member. Assignment failures are reported in the
// response and do not undo the member.
// POST /api/members
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	gender, _ := models.ParseGender(req.Gender)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.Members.Create(ctx, models.Member{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		Gender:            gender,
		Active:            true,
		IsCommitteeMember: req.IsCommitteeMember,
	})
	if err != nil {
		uierrors.Render(w, h.Log, err)
		return
	}
	h.Log.Info("member created", zap.String("member_id", m.ID.Hex()))

	resp := createResponse{Member: m}
	if req.Assign {
		resp.Assignments = map[string]assignOutcome{}
		if h.Prayer != nil {
			a, err := h.assignPrayer(ctx, m.ID)
			if err == nil {
				resp.Prayer = &a
			} else {
				h.Log.Warn("new member prayer assignment failed", zap.String("member_id", m.ID.Hex()), zap.Error(err))
			}
			resp.Assignments["prayer"] = outcome(err)
		}
		if h.Communication != nil && !m.IsCommitteeMember {
			a, err := h.Communication.AssignNewMember(ctx, m.ID)
			if err == nil {
				resp.Communication = &a
			} else {
				h.Log.Warn("new member communication assignment failed", zap.String("member_id", m.ID.Hex()), zap.Error(err))
			}
			resp.Assignments["communication"] = outcome(err)
		}
	}
	shared.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) assignPrayer(ctx context.Context, memberID primitive.ObjectID) (models.PrayerAssignment, error) {
	p, err := h.Prayer.ActivePeriod(ctx)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	return h.Prayer.AssignNewMember(ctx, memberID, p)
}
