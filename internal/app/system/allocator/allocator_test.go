package allocator

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func members(n int, g models.Gender) []models.Member {
	out := make([]models.Member, n)
	for i := range out {
		out[i] = models.Member{
			ID:       primitive.NewObjectID(),
			LastName: string(rune('Z' - i%26)),
			Gender:   g,
			Active:   true,
		}
	}
	return out
}

func staff(n int, g models.Gender) []models.CommitteeMember {
	out := make([]models.CommitteeMember, n)
	for i := range out {
		out[i] = models.CommitteeMember{
			ID:       primitive.NewObjectID(),
			LastName: string(rune('A' + i%26)),
			Gender:   g,
			Active:   true,
			Role:     models.RoleCommitteeMember,
		}
	}
	return out
}

func TestAllocate_Balance(t *testing.T) {
	tests := []struct {
		members, staff int
	}{
		{10, 3}, {9, 3}, {1, 4}, {0, 2}, {17, 5}, {100, 7},
	}
	for _, tt := range tests {
		ms := members(tt.members, models.GenderMale)
		ss := staff(tt.staff, models.GenderMale)

		slots, err := Allocate(ms, ss, Options{})
		require.NoError(t, err)
		require.Len(t, slots, tt.members)

		load := LoadByStaff(slots)
		lo, hi := tt.members/tt.staff, (tt.members+tt.staff-1)/tt.staff
		for _, s := range ss {
			n := load[s.ID]
			assert.GreaterOrEqual(t, n, lo, "staff load below floor(N/K)")
			assert.LessOrEqual(t, n, hi, "staff load above ceil(N/K)")
		}
	}
}

func TestAllocate_ExampleScenario(t *testing.T) {
	ms := append(members(6, models.GenderMale), members(4, models.GenderFemale)...)
	male := staff(2, models.GenderMale)
	female := staff(2, models.GenderFemale)

	slots, err := Allocate(ms, append(male, female...), Options{})
	require.NoError(t, err)
	require.Len(t, slots, 10)

	load := LoadByStaff(slots)
	for _, s := range male {
		assert.Equal(t, 3, load[s.ID])
	}
	for _, s := range female {
		assert.Equal(t, 2, load[s.ID])
	}
}

func TestAllocate_GenderMatched(t *testing.T) {
	ms := append(members(5, models.GenderMale), members(5, models.GenderFemale)...)
	ss := append(staff(2, models.GenderMale), staff(3, models.GenderFemale)...)

	genderOf := map[primitive.ObjectID]models.Gender{}
	for _, s := range ss {
		genderOf[s.ID] = s.Gender
	}
	memberGender := map[primitive.ObjectID]models.Gender{}
	for _, m := range ms {
		memberGender[m.ID] = m.Gender
	}

	slots, err := Allocate(ms, ss, Options{})
	require.NoError(t, err)
	for _, s := range slots {
		assert.Equal(t, memberGender[s.MemberID], genderOf[s.CommitteeMemberID])
	}
}

func TestAllocate_BucketMatchesStaffIndex(t *testing.T) {
	ms := members(7, models.GenderFemale)
	ss := staff(3, models.GenderFemale) // created in ID order

	slots, err := Allocate(ms, ss, Options{Rand: rand.New(rand.NewPCG(1, 2))})
	require.NoError(t, err)
	for _, s := range slots {
		require.GreaterOrEqual(t, s.Bucket, 1)
		require.LessOrEqual(t, s.Bucket, 3)
		assert.Equal(t, ss[s.Bucket-1].ID, s.CommitteeMemberID)
	}
}

func TestAllocate_MissingGenderPoolFailsWholeBatch(t *testing.T) {
	ms := append(members(3, models.GenderMale), members(2, models.GenderFemale)...)
	ss := staff(2, models.GenderMale)

	slots, err := Allocate(ms, ss, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, outreach.ErrNoEligibleStaff))
	assert.Nil(t, slots)
}

func TestAllocate_PreviewIsDeterministic(t *testing.T) {
	ms := members(11, models.GenderMale)
	ss := staff(3, models.GenderMale)

	first, err := Allocate(ms, ss, Options{Mode: Preview})
	require.NoError(t, err)

	// Reverse the inputs; preview output must not change.
	rev := make([]models.Member, len(ms))
	for i := range ms {
		rev[len(ms)-1-i] = ms[i]
	}
	second, err := Allocate(rev, ss, Options{Mode: Preview})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAllocate_PreviewSortsByLastName(t *testing.T) {
	ms := []models.Member{
		{ID: primitive.NewObjectID(), LastName: "Young", Gender: models.GenderMale},
		{ID: primitive.NewObjectID(), LastName: "adams", Gender: models.GenderMale},
		{ID: primitive.NewObjectID(), LastName: "Miller", Gender: models.GenderMale},
	}
	ss := []models.CommitteeMember{
		{ID: primitive.NewObjectID(), LastName: "Zed", Gender: models.GenderMale},
		{ID: primitive.NewObjectID(), LastName: "Abel", Gender: models.GenderMale},
	}

	slots, err := Allocate(ms, ss, Options{Mode: Preview})
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, ms[1].ID, slots[0].MemberID) // adams
	assert.Equal(t, ms[2].ID, slots[1].MemberID) // Miller
	assert.Equal(t, ms[0].ID, slots[2].MemberID) // Young
	assert.Equal(t, ss[1].ID, slots[0].CommitteeMemberID) // Abel
	assert.Equal(t, ss[0].ID, slots[1].CommitteeMemberID) // Zed
	assert.Equal(t, ss[1].ID, slots[2].CommitteeMemberID)
}

func TestByMember(t *testing.T) {
	ms := members(4, models.GenderMale)
	ss := staff(2, models.GenderMale)

	slots, err := Allocate(ms, ss, Options{})
	require.NoError(t, err)

	m := ByMember(slots)
	assert.Len(t, m, 4)
	for _, member := range ms {
		_, ok := m[member.ID]
		assert.True(t, ok, "member missing from allocation")
	}
}
