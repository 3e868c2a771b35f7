package rotation

import (
	"context"
	"sort"
	"strings"

	"github.com/dalemusser/chapterhub/internal/app/system/allocator"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreviewRow describes one assignment a mutation would create.
type PreviewRow struct {
	MemberID            primitive.ObjectID `json:"member_id"`
	MemberName          string             `json:"member_name"`
	Gender              models.Gender      `json:"gender"`
	CommitteeMemberID   primitive.ObjectID `json:"committee_member_id"`
	CommitteeMemberName string             `json:"committee_member_name"`
	Claimed             bool               `json:"claimed,omitempty"`
}

// Preview is the dry-run form of GenerateInitial and RotateBuckets.
type Preview struct {
	Period  models.Period `json:"period"`
	Rows    []PreviewRow  `json:"rows"`
	Dropped int           `json:"dropped,omitempty"`
	Skipped bool          `json:"skipped,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// PreviewInitial computes GenerateInitial's allocation without writing.
// Members and staff are ordered by name so the preview is reproducible.
func (e *Engine) PreviewInitial(ctx context.Context, period models.Period) (Preview, error) {
	pv := Preview{Period: period}
	if err := e.ensureEmpty(ctx, period); err != nil {
		return pv, err
	}

	slots, members, staff, err := e.allocate(ctx, allocator.Preview)
	if err != nil {
		return pv, err
	}
	memberByID := make(map[primitive.ObjectID]models.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}
	staffByID := make(map[primitive.ObjectID]models.CommitteeMember, len(staff))
	for _, cm := range staff {
		staffByID[cm.ID] = cm
	}

	pv.Rows = make([]PreviewRow, 0, len(slots))
	for _, s := range slots {
		m, cm := memberByID[s.MemberID], staffByID[s.CommitteeMemberID]
		pv.Rows = append(pv.Rows, previewRow(m, cm, false))
	}
	return pv, nil
}

// PreviewRotation computes RotateBuckets' result without writing.
func (e *Engine) PreviewRotation(ctx context.Context, target *models.Period) (Preview, error) {
	p := e.targetPeriod(target)
	pv := Preview{Period: p}

	skip, reason, prev, err := e.checkRotation(ctx, p)
	if err != nil {
		return pv, err
	}
	if skip {
		pv.Skipped, pv.Reason = true, reason
		return pv, nil
	}

	pl, err := e.plan(ctx, prev, p)
	if err != nil {
		return pv, err
	}
	pv.Dropped = pl.dropped
	sort.SliceStable(pl.rows, func(i, j int) bool {
		return memberLess(pl.rows[i].member, pl.rows[j].member)
	})
	pv.Rows = make([]PreviewRow, 0, len(pl.rows))
	for _, r := range pl.rows {
		pv.Rows = append(pv.Rows, previewRow(r.member, r.staff, r.carried))
	}
	return pv, nil
}

func previewRow(m models.Member, cm models.CommitteeMember, claimed bool) PreviewRow {
	return PreviewRow{
		MemberID:            m.ID,
		MemberName:          m.FullName(),
		Gender:              m.Gender,
		CommitteeMemberID:   cm.ID,
		CommitteeMemberName: cm.FullName(),
		Claimed:             claimed,
	}
}

func memberLess(a, b models.Member) bool {
	if la, lb := strings.ToLower(a.LastName), strings.ToLower(b.LastName); la != lb {
		return la < lb
	}
	return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
}
