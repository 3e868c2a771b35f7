// Package claims pins a member to the calling committee member across both
// assignment kinds at once.
//
// Each requested facet (prayer, communication) is handled on its own: one
// facet failing does not undo or prevent the other. The combined error
// lists every facet that failed.
package claims

import (
	"context"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Facet names.
const (
	FacetPrayer        = "prayer"
	FacetCommunication = "communication"
)

// PrayerClaimer is the part of the prayer rotation engine claims use.
type PrayerClaimer interface {
	ActivePeriod(ctx context.Context) (models.Period, error)
	ClaimMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error)
	ReleaseMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error)
}

// CommunicationClaimer is the part of the transfer engine claims use.
type CommunicationClaimer interface {
	ClaimMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.CommunicationAssignment, error)
	ReleaseMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.CommunicationAssignment, error)
}

// Service runs claim and release requests. Staff is optional; when set, the
// caller must be eligible staff to claim.
type Service struct {
	Members       outreach.MemberDirectory
	Staff         outreach.StaffDirectory
	Prayer        PrayerClaimer
	Communication CommunicationClaimer
	Log           *zap.Logger
}

// Request names the member and the facets to act on.
type Request struct {
	MemberID         primitive.ObjectID `json:"member_id" validate:"required" label:"Member"`
	ForPrayer        bool               `json:"for_prayer"`
	ForCommunication bool               `json:"for_communication"`
}

// FacetResult reports the outcome of one facet.
type FacetResult struct {
	Facet string `json:"facet"`
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the per-facet report of a request. Prayer and Communication
// hold the resulting rows for facets that succeeded.
type Result struct {
	MemberID      primitive.ObjectID              `json:"member_id"`
	Facets        []FacetResult                   `json:"facets"`
	Prayer        *models.PrayerAssignment        `json:"prayer,omitempty"`
	Communication *models.CommunicationAssignment `json:"communication,omitempty"`
}

// Succeeded counts the facets that went through.
func (r Result) Succeeded() int {
	n := 0
	for _, f := range r.Facets {
		if f.OK {
			n++
		}
	}
	return n
}

func (r *Result) record(facet string, err error) error {
	fr := FacetResult{Facet: facet, OK: err == nil}
	if err != nil {
		fr.Code = outreach.Code(err)
		fr.Error = err.Error()
		err = fmt.Errorf("%s: %w", facet, err)
	}
	r.Facets = append(r.Facets, fr)
	return err
}

// ClaimMember makes the caller the claimed owner of the member for each
// requested facet. The member must be active and share the caller's
// gender. Members who serve on the committee have no communication
// assignment to claim.
func (s *Service) ClaimMember(ctx context.Context, caller outreach.Caller, req Request) (Result, error) {
	res := Result{MemberID: req.MemberID}
	if !req.ForPrayer && !req.ForCommunication {
		return res, fmt.Errorf("choose prayer, communication or both: %w", outreach.ErrInvalidInput)
	}

	m, err := s.Members.GetByID(ctx, req.MemberID)
	if err != nil {
		return res, err
	}
	if m.Gender != caller.Gender {
		return res, fmt.Errorf("member %s is %s, caller is %s: %w", m.ID.Hex(), m.Gender, caller.Gender, outreach.ErrGenderMismatch)
	}
	if !m.InRotation() {
		return res, fmt.Errorf("member %s: %w", m.ID.Hex(), outreach.ErrInactiveMember)
	}
	if s.Staff != nil {
		cm, err := s.Staff.GetByID(ctx, caller.ID)
		if err != nil {
			return res, err
		}
		if !staffpolicy.IsEligible(cm) {
			return res, fmt.Errorf("committee member %s does not take assignments: %w", cm.ID.Hex(), outreach.ErrNotEligible)
		}
	}

	var errs error
	if req.ForPrayer {
		a, err := s.claimPrayer(ctx, caller, m.ID)
		if err == nil {
			res.Prayer = &a
		}
		errs = multierr.Append(errs, res.record(FacetPrayer, err))
	}
	if req.ForCommunication {
		var err error
		if m.IsCommitteeMember {
			err = fmt.Errorf("member %s serves on the committee: %w", m.ID.Hex(), outreach.ErrNotEligible)
		} else {
			var a models.CommunicationAssignment
			if a, err = s.Communication.ClaimMember(ctx, caller, m.ID); err == nil {
				res.Communication = &a
			}
		}
		errs = multierr.Append(errs, res.record(FacetCommunication, err))
	}

	s.logger().Info("claim requested",
		zap.String("member_id", m.ID.Hex()),
		zap.String("caller_id", caller.ID.Hex()),
		zap.Int("succeeded", res.Succeeded()),
		zap.Int("requested", len(res.Facets)),
		zap.Error(errs))
	return res, errs
}

// ReleaseClaim removes the caller's claim for each requested facet. Only
// assignments the caller owns can be released.
func (s *Service) ReleaseClaim(ctx context.Context, caller outreach.Caller, req Request) (Result, error) {
	res := Result{MemberID: req.MemberID}
	if !req.ForPrayer && !req.ForCommunication {
		return res, fmt.Errorf("choose prayer, communication or both: %w", outreach.ErrInvalidInput)
	}

	var errs error
	if req.ForPrayer {
		a, err := s.releasePrayer(ctx, caller, req.MemberID)
		if err == nil {
			res.Prayer = &a
		}
		errs = multierr.Append(errs, res.record(FacetPrayer, err))
	}
	if req.ForCommunication {
		a, err := s.Communication.ReleaseMember(ctx, caller, req.MemberID)
		if err == nil {
			res.Communication = &a
		}
		errs = multierr.Append(errs, res.record(FacetCommunication, err))
	}

	s.logger().Info("claim released",
		zap.String("member_id", req.MemberID.Hex()),
		zap.String("caller_id", caller.ID.Hex()),
		zap.Int("succeeded", res.Succeeded()),
		zap.Error(errs))
	return res, errs
}

// claimPrayer and releasePrayer act on the active month, so a claim made
// before the scheduled rotation lands in the month rotation carries forward.
func (s *Service) claimPrayer(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.PrayerAssignment, error) {
	p, err := s.Prayer.ActivePeriod(ctx)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	return s.Prayer.ClaimMember(ctx, caller, memberID, p)
}

func (s *Service) releasePrayer(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.PrayerAssignment, error) {
	p, err := s.Prayer.ActivePeriod(ctx)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	return s.Prayer.ReleaseMember(ctx, caller, memberID, p)
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
