// Package rotation implements monthly prayer assignments: initial
// generation, bucket rotation from one month to the next, mid-month
// placement of new members, and claims.
//
// Each committee member of a gender owns one bucket. Bucket b maps to the
// b-th eligible staff member of that gender in ID order. Rotating moves an
// unclaimed member from bucket b to bucket (b mod K)+1, so over K months a
// member is prayed for by every same-gender staff member. Claimed rows stay
// with their claimant while the claimant remains eligible.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/allocator"
	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.uber.org/zap"
)

// Deps are the collaborators of an Engine. Log, Metrics, Now and Rand are
// optional.
type Deps struct {
	Members     outreach.MemberDirectory
	Staff       outreach.StaffDirectory
	Assignments outreach.PrayerStore
	Settings    outreach.SettingsStore
	Log         *zap.Logger
	Metrics     *metrics.Outreach
	Now         func() time.Time
	Rand        *rand.Rand
}

// Engine runs prayer rotation operations.
type Engine struct {
	members  outreach.MemberDirectory
	staff    outreach.StaffDirectory
	store    outreach.PrayerStore
	settings outreach.SettingsStore
	log      *zap.Logger
	metrics  *metrics.Outreach
	now      func() time.Time
	rand     *rand.Rand
}

// New builds an Engine.
func New(d Deps) *Engine {
	e := &Engine{
		members:  d.Members,
		staff:    d.Staff,
		store:    d.Assignments,
		settings: d.Settings,
		log:      d.Log,
		metrics:  d.Metrics,
		now:      d.Now,
		rand:     d.Rand,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// CurrentPeriod returns the month containing now.
func (e *Engine) CurrentPeriod() models.Period {
	return models.MonthOf(e.now())
}

// ActivePeriod returns the month staff are currently praying through: the
// current month once it has assignments, otherwise the previous month while
// rotation has not yet run. It fails with ErrNotRotated when neither month
// has any rows.
func (e *Engine) ActivePeriod(ctx context.Context) (models.Period, error) {
	cur := e.CurrentPeriod()
	for _, p := range []models.Period{cur, cur.Previous()} {
		n, err := e.store.CountForPeriod(ctx, p.Start)
		if err != nil {
			return models.Period{}, fmt.Errorf("count prayer assignments: %w", err)
		}
		if n > 0 {
			return p, nil
		}
	}
	return models.Period{}, fmt.Errorf("%w: generate or rotate %s first", outreach.ErrNotRotated, cur.Key())
}

// requireRows refuses single-row inserts into a month that has not been
// generated or rotated, which would otherwise make RotateBuckets skip it.
func (e *Engine) requireRows(ctx context.Context, period models.Period) error {
	n, err := e.store.CountForPeriod(ctx, period.Start)
	if err != nil {
		return fmt.Errorf("count prayer assignments: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("prayer assignments for %s: %w", period.Key(), outreach.ErrNotRotated)
	}
	return nil
}

// GenerateResult reports an initial generation.
type GenerateResult struct {
	Period models.Period `json:"period"`
	Count  int           `json:"count"`
}

// GenerateInitial allocates every active member to a same-gender committee
// member for period. It fails with ErrAlreadyExists if period already has
// assignments, and with ErrNoEligibleStaff if any member's gender has no
// staff.
func (e *Engine) GenerateInitial(ctx context.Context, period models.Period) (GenerateResult, error) {
	res := GenerateResult{Period: period}

	if err := e.ensureEmpty(ctx, period); err != nil {
		return res, err
	}

	slots, _, _, err := e.allocate(ctx, allocator.Shuffle)
	if err != nil {
		return res, err
	}
	if len(slots) == 0 {
		e.log.Info("prayer generation: no active members", zap.String("period", period.Key()))
		return res, nil
	}

	now := e.now()
	rows := make([]models.PrayerAssignment, 0, len(slots))
	for _, s := range slots {
		a, err := models.NewPrayerAssignment(s.MemberID, s.CommitteeMemberID, s.Bucket, period, now)
		if err != nil {
			return res, err
		}
		rows = append(rows, a)
	}

	n, err := e.store.InsertMany(ctx, rows)
	res.Count = n
	e.metrics.PrayerCreated(metrics.SourceGenerate, n)
	if err != nil {
		if n == 0 {
			return res, fmt.Errorf("insert prayer assignments: %w", err)
		}
		e.log.Warn("prayer generation: some rows not inserted",
			zap.String("period", period.Key()),
			zap.Int("created", n),
			zap.Int("failed", len(rows)-n),
			zap.Error(err))
	}

	e.log.Info("prayer assignments generated",
		zap.String("period", period.Key()),
		zap.Int("count", n))
	return res, nil
}

func (e *Engine) ensureEmpty(ctx context.Context, period models.Period) error {
	n, err := e.store.CountForPeriod(ctx, period.Start)
	if err != nil {
		return fmt.Errorf("count prayer assignments: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("prayer assignments for %s: %w", period.Key(), outreach.ErrAlreadyExists)
	}
	return nil
}

// allocate runs the allocator over every active member and eligible staff
// member. It also returns the inputs, indexed, for preview rendering.
func (e *Engine) allocate(ctx context.Context, mode allocator.Mode) ([]allocator.Slot, []models.Member, []models.CommitteeMember, error) {
	members, err := e.members.ListActive(ctx, "")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list members: %w", err)
	}
	staff, err := e.staff.ListEligible(ctx, "")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list staff: %w", err)
	}
	slots, err := allocator.Allocate(members, staff, allocator.Options{Mode: mode, Rand: e.rand})
	if err != nil {
		return nil, nil, nil, err
	}
	return slots, members, staff, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, outreach.ErrNotFound)
}
