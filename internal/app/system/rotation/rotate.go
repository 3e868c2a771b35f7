package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Skip reasons reported by RotateBuckets.
const (
	ReasonAlreadyRotated = "assignments already exist for the target month"
	ReasonNoPrevious     = "no assignments exist for the previous month"
)

// RotateResult reports a rotation. Skipped rotations are not errors.
type RotateResult struct {
	Period  models.Period `json:"period"`
	Created int           `json:"created"`
	Skipped bool          `json:"skipped,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Dropped int           `json:"dropped"`
	Failed  int           `json:"failed"`
}

// plannedRow is one new-period row together with what produced it.
type plannedRow struct {
	row     models.PrayerAssignment
	member  models.Member
	staff   models.CommitteeMember
	carried bool // claim carried forward unchanged
}

type plan struct {
	rows    []plannedRow
	dropped int
}

// RotateBuckets creates target's assignments from the month before it.
// A nil target means the month containing now.
//
// Rotation is skipped when target already has assignments or the previous
// month has none. Members who are no longer active, or whose gender has no
// eligible staff, are dropped. Individual insert failures are counted and
// do not stop the batch. On completion the target month is saved as
// current_rotation_month.
func (e *Engine) RotateBuckets(ctx context.Context, target *models.Period) (RotateResult, error) {
	p := e.targetPeriod(target)
	res := RotateResult{Period: p}

	skip, reason, prev, err := e.checkRotation(ctx, p)
	if err != nil {
		return res, err
	}
	if skip {
		res.Skipped, res.Reason = true, reason
		if reason == ReasonAlreadyRotated {
			e.recordRotated(ctx, p)
		}
		e.log.Info("prayer rotation skipped", zap.String("period", p.Key()), zap.String("reason", reason))
		return res, nil
	}

	pl, err := e.plan(ctx, prev, p)
	if err != nil {
		return res, err
	}
	res.Dropped = pl.dropped

	rows := make([]models.PrayerAssignment, len(pl.rows))
	for i, r := range pl.rows {
		rows[i] = r.row
	}

	if len(rows) > 0 {
		n, err := e.store.InsertMany(ctx, rows)
		res.Created = n
		res.Failed = len(rows) - n
		if err != nil {
			e.log.Warn("prayer rotation: some rows not inserted",
				zap.String("period", p.Key()),
				zap.Int("created", n),
				zap.Int("failed", res.Failed),
				zap.Error(err))
		}
	}
	e.metrics.PrayerCreated(metrics.SourceRotate, res.Created)

	if res.Created > 0 || len(rows) == 0 {
		e.recordRotated(ctx, p)
	}

	e.log.Info("prayer rotation complete",
		zap.String("period", p.Key()),
		zap.Int("created", res.Created),
		zap.Int("dropped", res.Dropped),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (e *Engine) targetPeriod(target *models.Period) models.Period {
	if target != nil {
		return models.MonthOf(target.Start)
	}
	return e.CurrentPeriod()
}

// checkRotation applies the idempotency guards and returns the previous
// month's rows when rotation should proceed.
func (e *Engine) checkRotation(ctx context.Context, p models.Period) (bool, string, []models.PrayerAssignment, error) {
	n, err := e.store.CountForPeriod(ctx, p.Start)
	if err != nil {
		return false, "", nil, fmt.Errorf("count prayer assignments: %w", err)
	}
	if n > 0 {
		return true, ReasonAlreadyRotated, nil, nil
	}
	prev, err := e.store.ListForPeriod(ctx, p.Previous().Start)
	if err != nil {
		return false, "", nil, fmt.Errorf("list previous prayer assignments: %w", err)
	}
	if len(prev) == 0 {
		return true, ReasonNoPrevious, nil, nil
	}
	return false, "", prev, nil
}

// recordRotated saves current_rotation_month. Failure is logged; the next
// scheduled check sees the rows and retries the save.
func (e *Engine) recordRotated(ctx context.Context, p models.Period) {
	if e.settings == nil {
		return
	}
	if err := e.settings.Set(ctx, models.SettingCurrentRotationMonth, p.Key()); err != nil {
		e.log.Error("save current rotation month failed",
			zap.String("period", p.Key()),
			zap.Error(err))
	}
}

// plan computes the new-period rows for prev without writing anything.
func (e *Engine) plan(ctx context.Context, prev []models.PrayerAssignment, p models.Period) (plan, error) {
	members, err := e.members.ListActive(ctx, "")
	if err != nil {
		return plan{}, fmt.Errorf("list members: %w", err)
	}
	memberByID := make(map[primitive.ObjectID]models.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}

	staff, err := e.staff.ListEligible(ctx, "")
	if err != nil {
		return plan{}, fmt.Errorf("list staff: %w", err)
	}
	staffByID := make(map[primitive.ObjectID]models.CommitteeMember, len(staff))
	staffByGender := make(map[models.Gender][]models.CommitteeMember)
	for _, cm := range staff {
		staffByID[cm.ID] = cm
		staffByGender[cm.Gender] = append(staffByGender[cm.Gender], cm)
	}

	now := e.now()
	var out plan
	for _, old := range prev {
		m, ok := memberByID[old.MemberID]
		if !ok {
			out.dropped++
			continue
		}

		if old.IsClaimed {
			if cm, ok := staffByID[old.CommitteeMemberID]; ok {
				row, err := models.NewPrayerAssignment(m.ID, cm.ID, old.BucketNumber, p, now)
				if err != nil {
					return plan{}, err
				}
				row.IsClaimed = true
				row.ClaimedAt = carryClaimedAt(old.ClaimedAt, now)
				out.rows = append(out.rows, plannedRow{row: row, member: m, staff: cm, carried: true})
				continue
			}
		}

		pool := staffByGender[m.Gender]
		if len(pool) == 0 {
			out.dropped++
			continue
		}
		bucket := NextBucket(old.BucketNumber, len(pool))
		cm := pool[bucket-1]
		row, err := models.NewPrayerAssignment(m.ID, cm.ID, bucket, p, now)
		if err != nil {
			return plan{}, err
		}
		out.rows = append(out.rows, plannedRow{row: row, member: m, staff: cm})
	}
	return out, nil
}

// NextBucket returns the bucket that follows bucket in a pool of k staff.
// Buckets are 1-indexed and wrap from k back to 1.
func NextBucket(bucket, k int) int {
	if k <= 0 {
		return 0
	}
	if bucket < 1 {
		bucket = k
	}
	return bucket%k + 1
}

func carryClaimedAt(at *time.Time, now time.Time) *time.Time {
	if at != nil {
		t := *at
		return &t
	}
	return &now
}

// Due reports whether the scheduled rotation should run at now: the
// configured day of month has been reached and this month has not been
// rotated yet.
func Due(s outreach.Settings, now time.Time) bool {
	day := s.RotationDayOfMonth
	if day < 1 {
		day = outreach.DefaultRotationDay
	}
	return now.UTC().Day() >= day && s.CurrentRotationMonth != models.MonthOf(now).Key()
}
