package transfer

import (
	"context"

	"github.com/dalemusser/chapterhub/internal/app/system/allocator"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreviewRow is one assignment GenerateInitial would create.
type PreviewRow struct {
	MemberID            primitive.ObjectID `json:"member_id"`
	MemberName          string             `json:"member_name"`
	Gender              models.Gender      `json:"gender"`
	CommitteeMemberID   primitive.ObjectID `json:"committee_member_id"`
	CommitteeMemberName string             `json:"committee_member_name"`
}

// PreviewInitial computes GenerateInitial's allocation without writing,
// ordered by name so repeated previews agree.
func (e *Engine) PreviewInitial(ctx context.Context) ([]PreviewRow, error) {
	if err := e.ensureNoCurrent(ctx); err != nil {
		return nil, err
	}
	slots, members, staff, err := e.allocate(ctx, allocator.Preview)
	if err != nil {
		return nil, err
	}
	memberByID := make(map[primitive.ObjectID]models.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}
	staffByID := make(map[primitive.ObjectID]models.CommitteeMember, len(staff))
	for _, cm := range staff {
		staffByID[cm.ID] = cm
	}

	rows := make([]PreviewRow, 0, len(slots))
	for _, s := range slots {
		m, cm := memberByID[s.MemberID], staffByID[s.CommitteeMemberID]
		rows = append(rows, PreviewRow{
			MemberID:            m.ID,
			MemberName:          m.FullName(),
			Gender:              m.Gender,
			CommitteeMemberID:   cm.ID,
			CommitteeMemberName: cm.FullName(),
		})
	}
	return rows, nil
}
