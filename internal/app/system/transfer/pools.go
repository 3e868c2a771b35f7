package transfer

import (
	"context"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// poolCache memoizes member and staff lookups for one batch run.
type poolCache struct {
	e        *Engine
	members  map[primitive.ObjectID]models.Member
	byGender map[models.Gender][]models.CommitteeMember
}

func (e *Engine) newPoolCache() *poolCache {
	return &poolCache{
		e:        e,
		members:  make(map[primitive.ObjectID]models.Member),
		byGender: make(map[models.Gender][]models.CommitteeMember),
	}
}

func (p *poolCache) member(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	if m, ok := p.members[id]; ok {
		return m, nil
	}
	m, err := p.e.members.GetByID(ctx, id)
	if err != nil {
		return models.Member{}, err
	}
	p.members[id] = m
	return m, nil
}

func (p *poolCache) staff(ctx context.Context, g models.Gender) ([]models.CommitteeMember, error) {
	if s, ok := p.byGender[g]; ok {
		return s, nil
	}
	s, err := p.e.staff.ListEligible(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	p.byGender[g] = s
	return s, nil
}
