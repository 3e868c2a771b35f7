package prayerassignstore_test

import (
	"errors"
	"testing"
	"time"

	prayerassignstore "github.com/dalemusser/chapterhub/internal/app/store/prayerassign"
	"github.com/dalemusser/chapterhub/internal/app/system/indexes"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/chapterhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var april = models.MonthOf(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC))

func newRow(t *testing.T, member, staff primitive.ObjectID, bucket int, p models.Period) models.PrayerAssignment {
	t.Helper()
	a, err := models.NewPrayerAssignment(member, staff, bucket, p, time.Now())
	if err != nil {
		t.Fatalf("NewPrayerAssignment failed: %v", err)
	}
	return a
}

func TestStore_InsertMany_SkipsDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := prayerassignstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	staff := primitive.NewObjectID()
	m1, m2, m3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := store.Insert(ctx, newRow(t, m2, staff, 1, april)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	n, err := store.InsertMany(ctx, []models.PrayerAssignment{
		newRow(t, m1, staff, 1, april),
		newRow(t, m2, staff, 1, april),
		newRow(t, m3, staff, 1, april),
	})
	if n != 2 {
		t.Errorf("inserted: got %d, want 2", n)
	}
	if !errors.Is(err, outreach.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists for the duplicate, got %v", err)
	}

	count, err := store.CountForPeriod(ctx, april.Start)
	if err != nil {
		t.Fatalf("CountForPeriod failed: %v", err)
	}
	if count != 3 {
		t.Errorf("CountForPeriod: got %d, want 3", count)
	}
}

func TestStore_GetForMemberAndLists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := prayerassignstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s1, s2 := primitive.NewObjectID(), primitive.NewObjectID()
	m1, m2 := primitive.NewObjectID(), primitive.NewObjectID()
	may := april.Next()

	rows := []models.PrayerAssignment{
		newRow(t, m1, s1, 1, april),
		newRow(t, m2, s2, 2, april),
		newRow(t, m1, s2, 2, may),
	}
	if n, err := store.InsertMany(ctx, rows); err != nil || n != 3 {
		t.Fatalf("InsertMany: n=%d err=%v", n, err)
	}

	got, err := store.GetForMember(ctx, m1, may.Start)
	if err != nil {
		t.Fatalf("GetForMember failed: %v", err)
	}
	if got.CommitteeMemberID != s2 || got.BucketNumber != 2 {
		t.Errorf("unexpected row for May: %+v", got)
	}
	if _, err := store.GetForMember(ctx, m2, may.Start); !errors.Is(err, outreach.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	aprilRows, err := store.ListForPeriod(ctx, april.Start)
	if err != nil {
		t.Fatalf("ListForPeriod failed: %v", err)
	}
	if len(aprilRows) != 2 {
		t.Errorf("ListForPeriod: got %d rows, want 2", len(aprilRows))
	}

	mine, err := store.ListForStaff(ctx, s2, april.Start)
	if err != nil {
		t.Fatalf("ListForStaff failed: %v", err)
	}
	if len(mine) != 1 || mine[0].MemberID != m2 {
		t.Errorf("ListForStaff: got %+v", mine)
	}
}

func TestStore_ClaimAndReassign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := prayerassignstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	row, err := store.Insert(ctx, newRow(t, primitive.NewObjectID(), primitive.NewObjectID(), 1, april))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.SetClaim(ctx, row.ID, true, &at); err != nil {
		t.Fatalf("SetClaim failed: %v", err)
	}
	got, _ := store.GetByID(ctx, row.ID)
	if !got.IsClaimed || got.ClaimedAt == nil || !got.ClaimedAt.Equal(at) {
		t.Errorf("expected claimed row, got %+v", got)
	}

	if err := store.SetClaim(ctx, row.ID, false, nil); err != nil {
		t.Fatalf("SetClaim(false) failed: %v", err)
	}
	got, _ = store.GetByID(ctx, row.ID)
	if got.IsClaimed || got.ClaimedAt != nil {
		t.Errorf("expected released row, got %+v", got)
	}

	other := primitive.NewObjectID()
	if err := store.Reassign(ctx, row.ID, other, at); err != nil {
		t.Fatalf("Reassign failed: %v", err)
	}
	got, _ = store.GetByID(ctx, row.ID)
	if got.CommitteeMemberID != other || !got.IsClaimed {
		t.Errorf("expected row claimed by new owner, got %+v", got)
	}
	if got.BucketNumber != 1 {
		t.Errorf("Reassign must keep the bucket, got %d", got.BucketNumber)
	}

	if err := store.SetClaim(ctx, primitive.NewObjectID(), true, &at); !errors.Is(err, outreach.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing row, got %v", err)
	}
}
