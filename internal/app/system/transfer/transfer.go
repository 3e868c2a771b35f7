package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ChooseTarget picks who should take a member over from current.
//
// pool is the eligible same-gender staff in ID order. Staff who have not
// yet held the member (per history, plus current) come first, in pool
// order. Once everyone has had a turn, the staff member other than current
// with the fewest prior turns wins, ties going to pool order. ok is false
// when nobody other than current is available.
func ChooseTarget(pool []models.CommitteeMember, current primitive.ObjectID, history []models.TransferRecord) (models.CommitteeMember, bool) {
	attempts := make(map[primitive.ObjectID]int, len(pool))
	for _, h := range history {
		attempts[h.FromCommitteeMemberID]++
	}
	tried := func(id primitive.ObjectID) bool {
		return id == current || attempts[id] > 0
	}

	for _, cm := range pool {
		if !tried(cm.ID) {
			return cm, true
		}
	}

	var (
		best  models.CommitteeMember
		found bool
	)
	for _, cm := range pool {
		if cm.ID == current {
			continue
		}
		if !found || attempts[cm.ID] < attempts[best.ID] {
			best, found = cm, true
		}
	}
	return best, found
}

// eligible reports whether a may be transferred. A threshold below zero
// skips the age check.
func eligible(a models.CommunicationAssignment, days, threshold int) error {
	switch {
	case !a.IsCurrent:
		return fmt.Errorf("assignment %s is no longer current: %w", a.ID.Hex(), outreach.ErrNotEligible)
	case a.Status != models.CommStatusPending:
		return fmt.Errorf("assignment %s is %s: %w", a.ID.Hex(), a.Status, outreach.ErrNotEligible)
	case a.IsClaimed:
		return fmt.Errorf("assignment %s is claimed: %w", a.ID.Hex(), outreach.ErrNotEligible)
	case threshold >= 0 && days < threshold:
		return fmt.Errorf("assignment %s is %d days old, threshold %d: %w", a.ID.Hex(), days, threshold, outreach.ErrNotEligible)
	}
	return nil
}

// Outcome describes one completed transfer.
type Outcome struct {
	From     primitive.ObjectID             `json:"from_committee_member_id"`
	To       primitive.ObjectID             `json:"to_committee_member_id"`
	Previous models.CommunicationAssignment `json:"previous"`
	Current  models.CommunicationAssignment `json:"current"`
}

// Transfer moves one pending, unclaimed assignment to another committee
// member now, regardless of its age. The owner or an admin may do this.
func (e *Engine) Transfer(ctx context.Context, caller outreach.Caller, assignmentID primitive.ObjectID) (Outcome, error) {
	a, err := e.store.GetByID(ctx, assignmentID)
	if err != nil {
		return Outcome{}, err
	}
	if a.CommitteeMemberID != caller.ID && !caller.IsAdmin() {
		return Outcome{}, outreach.ErrNotOwner
	}
	if err := eligible(a, 0, -1); err != nil {
		return Outcome{}, err
	}

	m, err := e.members.GetByID(ctx, a.MemberID)
	if err != nil {
		return Outcome{}, err
	}
	pool, err := e.staff.ListEligible(ctx, m.Gender)
	if err != nil {
		return Outcome{}, fmt.Errorf("list staff: %w", err)
	}
	history, err := e.transfers.ListForMember(ctx, a.MemberID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load transfer history: %w", err)
	}
	to, ok := ChooseTarget(pool, a.CommitteeMemberID, history)
	if !ok {
		return Outcome{}, fmt.Errorf("no one else available for member %s: %w", a.MemberID.Hex(), outreach.ErrNoEligibleStaff)
	}

	out, err := e.move(ctx, a, to.ID, models.TransferManual, "")
	if err != nil {
		return Outcome{}, err
	}
	e.metrics.Transferred(models.TransferManual)
	e.log.Info("communication assignment transferred",
		zap.String("member_id", a.MemberID.Hex()),
		zap.String("from", out.From.Hex()),
		zap.String("to", out.To.Hex()),
		zap.String("reason", models.TransferManual),
		zap.String("by", caller.ID.Hex()))
	return out, nil
}

// AutoResult reports a ProcessAutoTransfers run.
type AutoResult struct {
	BatchID       string `json:"batch_id"`
	ThresholdDays int    `json:"threshold_days"`
	Eligible      int    `json:"eligible"`
	Transferred   int    `json:"transferred"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
}

// AutoPreviewRow is one transfer ProcessAutoTransfers would make.
type AutoPreviewRow struct {
	AssignmentID primitive.ObjectID `json:"assignment_id"`
	MemberID     primitive.ObjectID `json:"member_id"`
	MemberName   string             `json:"member_name"`
	From         primitive.ObjectID `json:"from_committee_member_id"`
	To           primitive.ObjectID `json:"to_committee_member_id,omitempty"`
	ToName       string             `json:"to_committee_member_name,omitempty"`
	DaysSince    int                `json:"days_since"`
	Skipped      bool               `json:"skipped,omitempty"`
	Reason       string             `json:"reason,omitempty"`
}

// AutoPreview is the dry-run form of ProcessAutoTransfers.
type AutoPreview struct {
	ThresholdDays int              `json:"threshold_days"`
	Rows          []AutoPreviewRow `json:"rows"`
}

// ProcessAutoTransfers moves every pending, unclaimed, current assignment
// at least threshold days old. A nil or non-positive thresholdDays uses
// unresponsive_threshold_days, read now.
//
// Each assignment is handled on its own; a failure is logged and counted
// and the run continues.
func (e *Engine) ProcessAutoTransfers(ctx context.Context, thresholdDays *int) (AutoResult, error) {
	threshold, err := e.threshold(ctx, thresholdDays)
	if err != nil {
		return AutoResult{}, err
	}
	res := AutoResult{BatchID: uuid.NewString(), ThresholdDays: threshold}

	now := e.now()
	stale, err := e.store.ListStale(ctx, outreach.StaleCutoff(now, threshold))
	if err != nil {
		return res, fmt.Errorf("list stale assignments: %w", err)
	}

	pools := e.newPoolCache()
	for _, a := range stale {
		if err := eligible(a, outreach.DaysSince(a.AssignedDate, now), threshold); err != nil {
			continue
		}
		res.Eligible++
		log := e.log.With(
			zap.String("batch_id", res.BatchID),
			zap.String("assignment_id", a.ID.Hex()),
			zap.String("member_id", a.MemberID.Hex()))

		to, ok, err := e.autoTarget(ctx, pools, a)
		if errors.Is(err, errOutOfRotation) {
			res.Skipped++
			e.metrics.TransferSkipped(metrics.SkipOutOfRotation)
			log.Info("auto-transfer skipped: member is inactive or graduated")
			continue
		}
		if err != nil {
			res.Failed++
			e.metrics.TransferSkipped(metrics.SkipFailed)
			log.Warn("auto-transfer: lookup failed", zap.Error(err))
			continue
		}
		if !ok {
			res.Skipped++
			e.metrics.TransferSkipped(metrics.SkipNoAlternative)
			log.Info("auto-transfer skipped: no one else available")
			continue
		}

		out, err := e.move(ctx, a, to.ID, models.TransferAutoUnresponsive, res.BatchID)
		switch {
		case errors.Is(err, outreach.ErrNotEligible):
			res.Skipped++
			e.metrics.TransferSkipped(metrics.SkipStale)
			log.Info("auto-transfer skipped: assignment changed since listing")
			continue
		case err != nil:
			res.Failed++
			e.metrics.TransferSkipped(metrics.SkipFailed)
			log.Warn("auto-transfer failed", zap.Error(err))
			continue
		}
		res.Transferred++
		e.metrics.Transferred(models.TransferAutoUnresponsive)
		log.Info("auto-transfer",
			zap.String("from", out.From.Hex()),
			zap.String("to", out.To.Hex()))
	}

	e.log.Info("auto-transfer run complete",
		zap.String("batch_id", res.BatchID),
		zap.Int("threshold_days", threshold),
		zap.Int("eligible", res.Eligible),
		zap.Int("transferred", res.Transferred),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}

// PreviewAutoTransfers reports what ProcessAutoTransfers would do now.
// Targets are chosen as if the transfers happened one at a time in order.
func (e *Engine) PreviewAutoTransfers(ctx context.Context, thresholdDays *int) (AutoPreview, error) {
	threshold, err := e.threshold(ctx, thresholdDays)
	if err != nil {
		return AutoPreview{}, err
	}
	pv := AutoPreview{ThresholdDays: threshold}

	now := e.now()
	stale, err := e.store.ListStale(ctx, outreach.StaleCutoff(now, threshold))
	if err != nil {
		return pv, fmt.Errorf("list stale assignments: %w", err)
	}

	pools := e.newPoolCache()
	for _, a := range stale {
		days := outreach.DaysSince(a.AssignedDate, now)
		if eligible(a, days, threshold) != nil {
			continue
		}
		row := AutoPreviewRow{AssignmentID: a.ID, MemberID: a.MemberID, From: a.CommitteeMemberID, DaysSince: days}
		if m, err := pools.member(ctx, a.MemberID); err == nil {
			row.MemberName = m.FullName()
		}
		to, ok, err := e.autoTarget(ctx, pools, a)
		switch {
		case err != nil:
			row.Skipped, row.Reason = true, err.Error()
		case !ok:
			row.Skipped, row.Reason = true, "no one else available"
		default:
			row.To, row.ToName = to.ID, to.FullName()
		}
		pv.Rows = append(pv.Rows, row)
	}
	return pv, nil
}

func (e *Engine) threshold(ctx context.Context, override *int) (int, error) {
	if override != nil && *override > 0 {
		return *override, nil
	}
	if e.settings == nil {
		return outreach.DefaultThresholdDays, nil
	}
	s, err := outreach.LoadSettings(ctx, e.settings)
	if err != nil {
		return 0, fmt.Errorf("load settings: %w", err)
	}
	return s.UnresponsiveThresholdDays, nil
}

// errOutOfRotation marks a member who went inactive or graduated while
// their assignment was pending. Nobody new is asked to reach them.
var errOutOfRotation = errors.New("member is inactive or graduated")

func (e *Engine) autoTarget(ctx context.Context, pools *poolCache, a models.CommunicationAssignment) (models.CommitteeMember, bool, error) {
	m, err := pools.member(ctx, a.MemberID)
	if err != nil {
		return models.CommitteeMember{}, false, err
	}
	if !m.InRotation() {
		return models.CommitteeMember{}, false, fmt.Errorf("member %s: %w", m.ID.Hex(), errOutOfRotation)
	}
	pool, err := pools.staff(ctx, m.Gender)
	if err != nil {
		return models.CommitteeMember{}, false, err
	}
	history, err := e.transfers.ListForMember(ctx, a.MemberID)
	if err != nil {
		return models.CommitteeMember{}, false, fmt.Errorf("load transfer history: %w", err)
	}
	to, ok := ChooseTarget(pool, a.CommitteeMemberID, history)
	return to, ok, nil
}

// move supersedes a, inserts its replacement for to and appends the ledger
// row as one unit. The supersede re-checks that a is still current, pending
// and unclaimed; if not, move fails with ErrNotEligible and writes nothing. If the replacement cannot be stored, a is reinstated so
// the member is never left without a current assignment, even when the
// Transactor cannot roll back.
func (e *Engine) move(ctx context.Context, a models.CommunicationAssignment, to primitive.ObjectID, reason, batchID string) (Outcome, error) {
	now := e.now()
	next, err := newAssignment(a.MemberID, to, now, reason == models.TransferClaimed)
	if err != nil {
		return Outcome{}, err
	}

	err = e.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.store.Supersede(ctx, a.ID); err != nil {
			if errors.Is(err, outreach.ErrNotFound) {
				return fmt.Errorf("assignment %s changed since it was read: %w", a.ID.Hex(), outreach.ErrNotEligible)
			}
			return err
		}
		stored, err := e.store.Insert(ctx, next)
		if err != nil {
			if rerr := e.store.Reinstate(ctx, a.ID); rerr != nil {
				e.log.Error("reinstate after failed transfer insert",
					zap.String("assignment_id", a.ID.Hex()),
					zap.Error(rerr))
			}
			return fmt.Errorf("insert replacement assignment: %w", err)
		}
		next = stored
		_, err = e.transfers.Append(ctx, models.TransferRecord{
			ID:                    primitive.NewObjectID(),
			MemberID:              a.MemberID,
			FromCommitteeMemberID: a.CommitteeMemberID,
			ToCommitteeMemberID:   to,
			Reason:                reason,
			BatchID:               batchID,
			TransferredAt:         now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("append transfer history: %w", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	prev := a
	prev.Status, prev.IsCurrent = models.CommStatusTransferred, false
	return Outcome{From: a.CommitteeMemberID, To: to, Previous: prev, Current: next}, nil
}

func newAssignment(memberID, to primitive.ObjectID, now time.Time, claimed bool) (models.CommunicationAssignment, error) {
	if claimed {
		return models.NewClaimedCommunicationAssignment(memberID, to, now)
	}
	return models.NewCommunicationAssignment(memberID, to, now)
}
