package rotation

import (
	"context"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AssignNewMember places one member into period mid-month. It picks the
// same-gender eligible staff member with the fewest assignments in period
// (ties go to the lowest ID) and uses that count plus one as the bucket.
// period must already have assignments; see ActivePeriod.
func (e *Engine) AssignNewMember(ctx context.Context, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error) {
	m, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	if !m.InRotation() {
		return models.PrayerAssignment{}, fmt.Errorf("member %s: %w", memberID.Hex(), outreach.ErrInactiveMember)
	}

	if _, err := e.store.GetForMember(ctx, memberID, period.Start); err == nil {
		return models.PrayerAssignment{}, fmt.Errorf("prayer assignment for member %s in %s: %w", memberID.Hex(), period.Key(), outreach.ErrAlreadyExists)
	} else if !isNotFound(err) {
		return models.PrayerAssignment{}, err
	}

	staff, err := e.staff.ListEligible(ctx, m.Gender)
	if err != nil {
		return models.PrayerAssignment{}, fmt.Errorf("list staff: %w", err)
	}
	if len(staff) == 0 {
		return models.PrayerAssignment{}, fmt.Errorf("%w for gender %s", outreach.ErrNoEligibleStaff, m.Gender)
	}

	rows, err := e.store.ListForPeriod(ctx, period.Start)
	if err != nil {
		return models.PrayerAssignment{}, fmt.Errorf("list prayer assignments: %w", err)
	}
	if len(rows) == 0 {
		return models.PrayerAssignment{}, fmt.Errorf("prayer assignments for %s: %w", period.Key(), outreach.ErrNotRotated)
	}
	load := make(map[primitive.ObjectID]int)
	for _, r := range rows {
		load[r.CommitteeMemberID]++
	}

	best := staff[0]
	for _, cm := range staff[1:] {
		if load[cm.ID] < load[best.ID] {
			best = cm
		}
	}

	a, err := models.NewPrayerAssignment(m.ID, best.ID, load[best.ID]+1, period, e.now())
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	a, err = e.store.Insert(ctx, a)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	e.metrics.PrayerCreated(metrics.SourceNew, 1)
	e.log.Info("prayer assignment added for new member",
		zap.String("member_id", m.ID.Hex()),
		zap.String("committee_member_id", best.ID.Hex()),
		zap.String("period", period.Key()))
	return a, nil
}

// Claim pins an assignment the caller owns so rotation carries it forward.
func (e *Engine) Claim(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID) (models.PrayerAssignment, error) {
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	if a.CommitteeMemberID != caller.ID {
		return models.PrayerAssignment{}, outreach.ErrNotOwner
	}
	if a.IsClaimed {
		return models.PrayerAssignment{}, outreach.ErrAlreadyClaimed
	}
	now := e.now().UTC()
	if err := e.store.SetClaim(ctx, a.ID, true, &now); err != nil {
		return models.PrayerAssignment{}, err
	}
	a.IsClaimed, a.ClaimedAt = true, &now
	return a, nil
}

// Release removes the caller's claim from an assignment.
func (e *Engine) Release(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID) (models.PrayerAssignment, error) {
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	if a.CommitteeMemberID != caller.ID {
		return models.PrayerAssignment{}, outreach.ErrNotOwner
	}
	if !a.IsClaimed {
		return models.PrayerAssignment{}, outreach.ErrNotClaimed
	}
	if err := e.store.SetClaim(ctx, a.ID, false, nil); err != nil {
		return models.PrayerAssignment{}, err
	}
	a.IsClaimed, a.ClaimedAt = false, nil
	return a, nil
}

// ListForPeriod returns every assignment in period.
func (e *Engine) ListForPeriod(ctx context.Context, period models.Period) ([]models.PrayerAssignment, error) {
	return e.store.ListForPeriod(ctx, period.Start)
}

// ListMine returns the caller's assignments in period.
func (e *Engine) ListMine(ctx context.Context, caller outreach.Caller, period models.Period) ([]models.PrayerAssignment, error) {
	return e.store.ListForStaff(ctx, caller.ID, period.Start)
}

// ClaimMember points member's assignment in period at the caller and marks
// it claimed. A row owned by someone else is taken over unless it is
// already claimed. A member without a row gets one in the caller's next
// bucket, provided period already has assignments. Claiming a row the
// caller already holds claimed is a no-op.
func (e *Engine) ClaimMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error) {
	now := e.now().UTC()

	a, err := e.store.GetForMember(ctx, memberID, period.Start)
	if isNotFound(err) {
		if err := e.requireRows(ctx, period); err != nil {
			return models.PrayerAssignment{}, err
		}
		mine, err := e.store.ListForStaff(ctx, caller.ID, period.Start)
		if err != nil {
			return models.PrayerAssignment{}, err
		}
		a, err := models.NewPrayerAssignment(memberID, caller.ID, len(mine)+1, period, now)
		if err != nil {
			return models.PrayerAssignment{}, err
		}
		a.IsClaimed, a.ClaimedAt = true, &now
		a, err = e.store.Insert(ctx, a)
		if err != nil {
			return models.PrayerAssignment{}, err
		}
		e.metrics.PrayerCreated(metrics.SourceClaim, 1)
		return a, nil
	}
	if err != nil {
		return models.PrayerAssignment{}, err
	}

	switch {
	case a.CommitteeMemberID == caller.ID && a.IsClaimed:
		return a, nil
	case a.CommitteeMemberID == caller.ID:
		if err := e.store.SetClaim(ctx, a.ID, true, &now); err != nil {
			return models.PrayerAssignment{}, err
		}
	case a.IsClaimed:
		return models.PrayerAssignment{}, fmt.Errorf("prayer assignment for member %s: %w", memberID.Hex(), outreach.ErrAlreadyClaimed)
	default:
		if err := e.store.Reassign(ctx, a.ID, caller.ID, now); err != nil {
			return models.PrayerAssignment{}, err
		}
		e.log.Info("prayer assignment taken over by claim",
			zap.String("member_id", memberID.Hex()),
			zap.String("from", a.CommitteeMemberID.Hex()),
			zap.String("to", caller.ID.Hex()))
		a.CommitteeMemberID = caller.ID
	}
	a.IsClaimed, a.ClaimedAt = true, &now
	return a, nil
}

// ReleaseMember clears the caller's claim on member's assignment in period.
func (e *Engine) ReleaseMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error) {
	a, err := e.store.GetForMember(ctx, memberID, period.Start)
	if err != nil {
		return models.PrayerAssignment{}, err
	}
	return e.Release(ctx, caller, a.ID)
}
