package transfer

import (
	"context"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Claim pins a current assignment the caller owns so auto-transfer leaves
// it alone.
func (e *Engine) Claim(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID) (models.CommunicationAssignment, error) {
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	if a.CommitteeMemberID != caller.ID {
		return models.CommunicationAssignment{}, outreach.ErrNotOwner
	}
	if !a.IsCurrent {
		return models.CommunicationAssignment{}, fmt.Errorf("assignment %s is no longer current: %w", a.ID.Hex(), outreach.ErrNotEligible)
	}
	if a.IsClaimed {
		return models.CommunicationAssignment{}, outreach.ErrAlreadyClaimed
	}
	now := e.now().UTC()
	if err := e.store.SetClaim(ctx, a.ID, true, &now); err != nil {
		return models.CommunicationAssignment{}, err
	}
	a.IsClaimed, a.ClaimedAt = true, &now
	return a, nil
}

// Release removes the caller's claim from an assignment.
func (e *Engine) Release(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID) (models.CommunicationAssignment, error) {
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	if a.CommitteeMemberID != caller.ID {
		return models.CommunicationAssignment{}, outreach.ErrNotOwner
	}
	if !a.IsClaimed {
		return models.CommunicationAssignment{}, outreach.ErrNotClaimed
	}
	if err := e.store.SetClaim(ctx, a.ID, false, nil); err != nil {
		return models.CommunicationAssignment{}, err
	}
	a.IsClaimed, a.ClaimedAt = false, nil
	return a, nil
}

// ClaimMember makes the caller the claimed owner of member's current
// assignment. A pending assignment held by someone else is taken over: the
// old row is superseded and a claimed row is created for the caller, with
// reason "claimed" in the ledger. It fails with ErrAlreadyClaimed when
// someone else holds a claim, and with ErrNotEligible when another owner
// already made contact. A member without a current row gets a new claimed
// one.
func (e *Engine) ClaimMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.CommunicationAssignment, error) {
	cur, err := e.store.GetCurrentForMember(ctx, memberID)
	if isNotFound(err) {
		a, err := models.NewClaimedCommunicationAssignment(memberID, caller.ID, e.now())
		if err != nil {
			return models.CommunicationAssignment{}, err
		}
		return e.store.Insert(ctx, a)
	}
	if err != nil {
		return models.CommunicationAssignment{}, err
	}

	switch {
	case cur.CommitteeMemberID == caller.ID && cur.IsClaimed:
		return cur, nil
	case cur.CommitteeMemberID == caller.ID:
		now := e.now().UTC()
		if err := e.store.SetClaim(ctx, cur.ID, true, &now); err != nil {
			return models.CommunicationAssignment{}, err
		}
		cur.IsClaimed, cur.ClaimedAt = true, &now
		return cur, nil
	case cur.IsClaimed:
		return models.CommunicationAssignment{}, fmt.Errorf("communication assignment for member %s: %w", memberID.Hex(), outreach.ErrAlreadyClaimed)
	case cur.Status != models.CommStatusPending:
		return models.CommunicationAssignment{}, fmt.Errorf("communication assignment for member %s is %s: %w", memberID.Hex(), cur.Status, outreach.ErrNotEligible)
	}

	out, err := e.move(ctx, cur, caller.ID, models.TransferClaimed, "")
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	e.metrics.Transferred(models.TransferClaimed)
	e.log.Info("communication assignment taken over by claim",
		zap.String("member_id", memberID.Hex()),
		zap.String("from", out.From.Hex()),
		zap.String("to", out.To.Hex()))
	return out.Current, nil
}

// ReleaseMember clears the caller's claim on member's current assignment.
func (e *Engine) ReleaseMember(ctx context.Context, caller outreach.Caller, memberID primitive.ObjectID) (models.CommunicationAssignment, error) {
	cur, err := e.store.GetCurrentForMember(ctx, memberID)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	return e.Release(ctx, caller, cur.ID)
}
