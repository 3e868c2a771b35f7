package rotation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/store/memstore"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db  *memstore.DB
	eng *Engine
	seq int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	return &fixture{
		db: db,
		eng: New(Deps{
			Members:     db.Members(),
			Staff:       db.Staff(),
			Assignments: db.Prayer(),
			Settings:    db.Settings(),
			Now:         func() time.Time { return testNow },
			Rand:        rand.New(rand.NewPCG(7, 11)),
		}),
	}
}

// id returns ObjectIDs that sort in creation order.
func (f *fixture) id() primitive.ObjectID {
	f.seq++
	oid, _ := primitive.ObjectIDFromHex(fmt.Sprintf("%024x", f.seq))
	return oid
}

func (f *fixture) member(g models.Gender, last string) models.Member {
	return f.db.PutMember(models.Member{ID: f.id(), FirstName: "M", LastName: last, Gender: g, Active: true})
}

func (f *fixture) staff(g models.Gender, last string) models.CommitteeMember {
	return f.db.PutStaff(models.CommitteeMember{
		ID: f.id(), FirstName: "S", LastName: last, Gender: g,
		Active: true, Role: models.RoleCommitteeMember, Status: models.StaffStatusActive,
	})
}

func (f *fixture) prior(t *testing.T, m models.Member, cm models.CommitteeMember, bucket int, claimed bool) models.PrayerAssignment {
	t.Helper()
	a, err := models.NewPrayerAssignment(m.ID, cm.ID, bucket, models.MonthOf(testNow).Previous(), testNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	if claimed {
		at := testNow.AddDate(0, -1, 0)
		a.IsClaimed, a.ClaimedAt = true, &at
	}
	a, err = f.db.Prayer().Insert(context.Background(), a)
	require.NoError(t, err)
	return a
}

func (f *fixture) current(t *testing.T, memberID primitive.ObjectID) models.PrayerAssignment {
	t.Helper()
	a, err := f.db.Prayer().GetForMember(context.Background(), memberID, models.MonthOf(testNow).Start)
	require.NoError(t, err)
	return a
}

func TestGenerateInitial_ExampleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		f.member(models.GenderMale, fmt.Sprintf("Male%d", i))
	}
	for i := 0; i < 4; i++ {
		f.member(models.GenderFemale, fmt.Sprintf("Female%d", i))
	}
	m1, m2 := f.staff(models.GenderMale, "A"), f.staff(models.GenderMale, "B")
	w1, w2 := f.staff(models.GenderFemale, "C"), f.staff(models.GenderFemale, "D")

	period := f.eng.CurrentPeriod()
	res, err := f.eng.GenerateInitial(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Count)

	load := map[primitive.ObjectID]int{}
	rows, err := f.eng.ListForPeriod(ctx, period)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for _, r := range rows {
		load[r.CommitteeMemberID]++
		assert.False(t, r.IsClaimed)
	}
	assert.Equal(t, 3, load[m1.ID])
	assert.Equal(t, 3, load[m2.ID])
	assert.Equal(t, 2, load[w1.ID])
	assert.Equal(t, 2, load[w2.ID])

	// Second run is refused and creates nothing.
	_, err = f.eng.GenerateInitial(ctx, period)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyExists))
	n, err := f.db.Prayer().CountForPeriod(ctx, period.Start)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}

func TestGenerateInitial_MissingGenderPoolAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(models.GenderMale, "A")
	f.member(models.GenderFemale, "B")
	f.staff(models.GenderMale, "S")

	_, err := f.eng.GenerateInitial(ctx, f.eng.CurrentPeriod())
	assert.True(t, errors.Is(err, outreach.ErrNoEligibleStaff))

	n, err := f.db.Prayer().CountForPeriod(ctx, f.eng.CurrentPeriod().Start)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerateInitial_SkipsInactiveAndNonRotationStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active := f.member(models.GenderMale, "Active")
	f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderMale, Active: false})
	f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderMale, Active: true, Graduated: true})
	cm := f.staff(models.GenderMale, "S")
	f.db.PutStaff(models.CommitteeMember{ID: f.id(), Gender: models.GenderMale, Active: true, Role: models.RolePresident})

	res, err := f.eng.GenerateInitial(ctx, f.eng.CurrentPeriod())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, cm.ID, f.current(t, active.ID).CommitteeMemberID)
}

func TestRotateBuckets_Wraparound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.staff(models.GenderMale, "A"), f.staff(models.GenderMale, "B"), f.staff(models.GenderMale, "C")
	m1, m2, m3 := f.member(models.GenderMale, "One"), f.member(models.GenderMale, "Two"), f.member(models.GenderMale, "Three")
	f.prior(t, m1, b, 2, false)
	f.prior(t, m2, c, 3, false)
	f.prior(t, m3, a, 1, false)

	res, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Created)

	got1 := f.current(t, m1.ID)
	assert.Equal(t, 3, got1.BucketNumber)
	assert.Equal(t, c.ID, got1.CommitteeMemberID)

	got2 := f.current(t, m2.ID)
	assert.Equal(t, 1, got2.BucketNumber)
	assert.Equal(t, a.ID, got2.CommitteeMemberID)

	got3 := f.current(t, m3.ID)
	assert.Equal(t, 2, got3.BucketNumber)
	assert.Equal(t, b.ID, got3.CommitteeMemberID)

	s, err := outreach.LoadSettings(ctx, f.db.Settings())
	require.NoError(t, err)
	assert.Equal(t, "2026-03", s.CurrentRotationMonth)
}

func TestRotateBuckets_ClaimIsSticky(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.staff(models.GenderMale, "A")
	b := f.staff(models.GenderMale, "B")
	f.staff(models.GenderMale, "C")
	m := f.member(models.GenderMale, "One")
	old := f.prior(t, m, b, 2, true)

	_, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)

	got := f.current(t, m.ID)
	assert.Equal(t, 2, got.BucketNumber)
	assert.Equal(t, b.ID, got.CommitteeMemberID)
	assert.True(t, got.IsClaimed)
	require.NotNil(t, got.ClaimedAt)
	assert.True(t, got.ClaimedAt.Equal(*old.ClaimedAt))
}

func TestRotateBuckets_InactiveClaimantFallsBackToRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.staff(models.GenderMale, "A")
	b := f.staff(models.GenderMale, "B")
	f.staff(models.GenderMale, "C")
	m := f.member(models.GenderMale, "One")
	f.prior(t, m, b, 2, true)

	b.Active = false
	f.db.PutStaff(b)

	_, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)

	// Pool is now [A, C]; bucket 2 wraps to 1.
	got := f.current(t, m.ID)
	assert.Equal(t, 1, got.BucketNumber)
	assert.Equal(t, a.ID, got.CommitteeMemberID)
	assert.False(t, got.IsClaimed)
}

func TestRotateBuckets_DropsInactiveAndUnstaffedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	man := f.staff(models.GenderMale, "A")
	woman := f.staff(models.GenderFemale, "B")
	stays := f.member(models.GenderMale, "Stays")
	leaves := f.member(models.GenderMale, "Leaves")
	orphan := f.member(models.GenderFemale, "Orphan")
	f.prior(t, stays, man, 1, false)
	f.prior(t, leaves, man, 1, false)
	f.prior(t, orphan, woman, 1, false)

	leaves.Graduated = true
	f.db.PutMember(leaves)
	woman.Role = models.RoleOverseer
	f.db.PutStaff(woman)

	res, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, man.ID, f.current(t, stays.ID).CommitteeMemberID)
}

func TestRotateBuckets_Skips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonNoPrevious, res.Reason)

	cm := f.staff(models.GenderMale, "A")
	m := f.member(models.GenderMale, "One")
	f.prior(t, m, cm, 1, false)

	res, err = f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	res, err = f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, ReasonAlreadyRotated, res.Reason)

	n, err := f.db.Prayer().CountForPeriod(ctx, f.eng.CurrentPeriod().Start)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRotateBuckets_InsertFailuresAreCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cm := f.staff(models.GenderMale, "A")
	f.prior(t, f.member(models.GenderMale, "One"), cm, 1, false)
	f.prior(t, f.member(models.GenderMale, "Two"), cm, 1, false)

	f.db.FailOn(memstore.OpPrayerInsert, errors.New("write failed"))
	res, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Failed)

	s, err := outreach.LoadSettings(ctx, f.db.Settings())
	require.NoError(t, err)
	assert.Empty(t, s.CurrentRotationMonth, "month must not be recorded when nothing was created")
}

func TestPreviewRotation_DoesNotWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.staff(models.GenderMale, "A")
	b := f.staff(models.GenderMale, "B")
	zed := f.member(models.GenderMale, "Zed")
	abe := f.member(models.GenderMale, "Abe")
	f.prior(t, zed, a, 1, false)
	f.prior(t, abe, b, 2, true)

	pv, err := f.eng.PreviewRotation(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pv.Rows, 2)
	assert.Equal(t, abe.ID, pv.Rows[0].MemberID)
	assert.True(t, pv.Rows[0].Claimed)
	assert.Equal(t, b.ID, pv.Rows[0].CommitteeMemberID)
	assert.Equal(t, zed.ID, pv.Rows[1].MemberID)
	assert.Equal(t, b.ID, pv.Rows[1].CommitteeMemberID)

	n, err := f.db.Prayer().CountForPeriod(ctx, f.eng.CurrentPeriod().Start)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPreviewInitial_IsReproducible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, last := range []string{"Young", "Adams", "Miller", "Baker"} {
		f.member(models.GenderFemale, last)
	}
	f.staff(models.GenderFemale, "Zed")
	f.staff(models.GenderFemale, "Abel")

	first, err := f.eng.PreviewInitial(ctx, f.eng.CurrentPeriod())
	require.NoError(t, err)
	second, err := f.eng.PreviewInitial(ctx, f.eng.CurrentPeriod())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first.Rows, 4)
	assert.Equal(t, "M Adams", first.Rows[0].MemberName)
	assert.Equal(t, "S Abel", first.Rows[0].CommitteeMemberName)
}

func TestAssignNewMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	period := f.eng.CurrentPeriod()
	a := f.staff(models.GenderMale, "A")
	b := f.staff(models.GenderMale, "B")

	// A already has two, B one.
	for _, cm := range []models.CommitteeMember{a, a, b} {
		row, err := models.NewPrayerAssignment(f.member(models.GenderMale, "X").ID, cm.ID, 1, period, testNow)
		require.NoError(t, err)
		_, err = f.db.Prayer().Insert(ctx, row)
		require.NoError(t, err)
	}

	newcomer := f.member(models.GenderMale, "New")
	got, err := f.eng.AssignNewMember(ctx, newcomer.ID, period)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.CommitteeMemberID)
	assert.Equal(t, 2, got.BucketNumber)

	_, err = f.eng.AssignNewMember(ctx, newcomer.ID, period)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyExists))

	gone := f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderMale, Active: false})
	_, err = f.eng.AssignNewMember(ctx, gone.ID, period)
	assert.True(t, errors.Is(err, outreach.ErrInactiveMember))

	woman := f.member(models.GenderFemale, "W")
	_, err = f.eng.AssignNewMember(ctx, woman.ID, period)
	assert.True(t, errors.Is(err, outreach.ErrNoEligibleStaff))
}

func TestClaimAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.staff(models.GenderMale, "Owner")
	other := f.staff(models.GenderMale, "Other")
	m := f.member(models.GenderMale, "One")
	row, err := models.NewPrayerAssignment(m.ID, owner.ID, 1, f.eng.CurrentPeriod(), testNow)
	require.NoError(t, err)
	row, err = f.db.Prayer().Insert(ctx, row)
	require.NoError(t, err)

	_, err = f.eng.Release(ctx, outreach.CallerFrom(owner), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotClaimed))

	_, err = f.eng.Claim(ctx, outreach.CallerFrom(other), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))

	claimed, err := f.eng.Claim(ctx, outreach.CallerFrom(owner), row.ID)
	require.NoError(t, err)
	assert.True(t, claimed.IsClaimed)
	require.NotNil(t, claimed.ClaimedAt)

	_, err = f.eng.Claim(ctx, outreach.CallerFrom(owner), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyClaimed))

	_, err = f.eng.Release(ctx, outreach.CallerFrom(other), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))

	released, err := f.eng.Release(ctx, outreach.CallerFrom(owner), row.ID)
	require.NoError(t, err)
	assert.False(t, released.IsClaimed)
	assert.Nil(t, released.ClaimedAt)

	mine, err := f.eng.ListMine(ctx, outreach.CallerFrom(owner), f.eng.CurrentPeriod())
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestNextBucket(t *testing.T) {
	tests := []struct{ bucket, k, want int }{
		{1, 3, 2}, {2, 3, 3}, {3, 3, 1}, {5, 3, 3}, {1, 1, 1}, {4, 2, 1}, {1, 0, 0},
	}
	for _, tt := range tests {
		if got := NextBucket(tt.bucket, tt.k); got != tt.want {
			t.Errorf("NextBucket(%d, %d) = %d, want %d", tt.bucket, tt.k, got, tt.want)
		}
	}
}

func TestDue(t *testing.T) {
	tests := []struct {
		name string
		s    outreach.Settings
		now  time.Time
		want bool
	}{
		{"day reached, not rotated", outreach.Settings{RotationDayOfMonth: 1, CurrentRotationMonth: "2026-02"}, testNow, true},
		{"already rotated", outreach.Settings{RotationDayOfMonth: 1, CurrentRotationMonth: "2026-03"}, testNow, false},
		{"day not reached", outreach.Settings{RotationDayOfMonth: 20}, testNow, false},
		{"on the day", outreach.Settings{RotationDayOfMonth: 15}, testNow, true},
		{"zero day uses default", outreach.Settings{}, testNow, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Due(tt.s, tt.now))
		})
	}
}

func TestClaimMember_BeforeRotationDoesNotBlockIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.staff(models.GenderMale, "A"), f.staff(models.GenderMale, "B"), f.staff(models.GenderMale, "C")
	m1, m2, m3 := f.member(models.GenderMale, "One"), f.member(models.GenderMale, "Two"), f.member(models.GenderMale, "Three")
	f.prior(t, m1, a, 1, false)
	f.prior(t, m2, b, 2, false)
	f.prior(t, m3, c, 3, false)

	active, err := f.eng.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.eng.CurrentPeriod().Previous(), active)

	claimed, err := f.eng.ClaimMember(ctx, outreach.CallerFrom(b), m1.ID, active)
	require.NoError(t, err)
	assert.True(t, claimed.PeriodStart.Equal(active.Start))

	// The current month is still empty, so writes aimed at it are refused.
	_, err = f.eng.ClaimMember(ctx, outreach.CallerFrom(b), m2.ID, f.eng.CurrentPeriod())
	assert.True(t, errors.Is(err, outreach.ErrNotRotated))
	newcomer := f.member(models.GenderMale, "New")
	_, err = f.eng.AssignNewMember(ctx, newcomer.ID, f.eng.CurrentPeriod())
	assert.True(t, errors.Is(err, outreach.ErrNotRotated))

	res, err := f.eng.RotateBuckets(ctx, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Created)

	got := f.current(t, m1.ID)
	assert.Equal(t, b.ID, got.CommitteeMemberID)
	assert.True(t, got.IsClaimed)
	f.current(t, m2.ID)
	f.current(t, m3.ID)

	active, err = f.eng.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.eng.CurrentPeriod(), active)
}

func TestActivePeriod_NothingGenerated(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.ActivePeriod(context.Background())
	assert.True(t, errors.Is(err, outreach.ErrNotRotated))
}
