package transfer

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

const day = 24 * time.Hour

type fixture struct {
	db  *memstore.DB
	tx  outreach.Transactor
	eng *Engine
	now time.Time
	seq int
}

func newFixture(t *testing.T, tx outreach.Transactor) *fixture {
	t.Helper()
	f := &fixture{db: memstore.New(), tx: tx, now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	if f.tx == nil {
		f.tx = f.db
	}
	f.useAssignments(f.db.Communication())
	return f
}

// useAssignments rebuilds the engine over a different assignment store.
func (f *fixture) useAssignments(store outreach.CommunicationStore) {
	f.eng = New(Deps{
		Members:     f.db.Members(),
		Staff:       f.db.Staff(),
		Assignments: store,
		Logs:        f.db.Logs(),
		Transfers:   f.db.Transfers(),
		Settings:    f.db.Settings(),
		Tx:          f.tx,
		Now:         func() time.Time { return f.now },
		Rand:        rand.New(rand.NewPCG(3, 5)),
	})
}

// interleaved runs a hook after reads, standing in for another request
// that changes a row between the engine's read and its write.
type interleaved struct {
	outreach.CommunicationStore
	afterList func([]models.CommunicationAssignment)
	afterGet  func(models.CommunicationAssignment)
}

func (s interleaved) ListStale(ctx context.Context, cutoff time.Time) ([]models.CommunicationAssignment, error) {
	rows, err := s.CommunicationStore.ListStale(ctx, cutoff)
	if err == nil && s.afterList != nil {
		s.afterList(rows)
	}
	return rows, err
}

func (s interleaved) GetByID(ctx context.Context, id primitive.ObjectID) (models.CommunicationAssignment, error) {
	a, err := s.CommunicationStore.GetByID(ctx, id)
	if err == nil && s.afterGet != nil {
		s.afterGet(a)
	}
	return a, err
}

func (f *fixture) id() primitive.ObjectID {
	f.seq++
	oid, _ := primitive.ObjectIDFromHex(fmt.Sprintf("%024x", f.seq))
	return oid
}

func (f *fixture) member(g models.Gender) models.Member {
	return f.db.PutMember(models.Member{ID: f.id(), FirstName: "M", LastName: fmt.Sprint(f.seq), Gender: g, Active: true})
}

func (f *fixture) staff(g models.Gender) models.CommitteeMember {
	return f.db.PutStaff(models.CommitteeMember{
		ID: f.id(), FirstName: "S", LastName: fmt.Sprint(f.seq), Gender: g,
		Active: true, Role: models.RoleCommitteeMember,
	})
}

// assigned stores a pending current row that is age old.
func (f *fixture) assigned(t *testing.T, m models.Member, cm models.CommitteeMember, age time.Duration) models.CommunicationAssignment {
	t.Helper()
	a, err := models.NewCommunicationAssignment(m.ID, cm.ID, f.now.Add(-age))
	require.NoError(t, err)
	a, err = f.db.Communication().Insert(context.Background(), a)
	require.NoError(t, err)
	return a
}

func (f *fixture) current(t *testing.T, memberID primitive.ObjectID) models.CommunicationAssignment {
	t.Helper()
	a, err := f.db.Communication().GetCurrentForMember(context.Background(), memberID)
	require.NoError(t, err)
	return a
}

func assertSingleCurrent(t *testing.T, db *memstore.DB) {
	t.Helper()
	seen := map[primitive.ObjectID]int{}
	for _, a := range db.AllCommunication() {
		if a.IsCurrent {
			seen[a.MemberID]++
		}
	}
	for m, n := range seen {
		assert.LessOrEqual(t, n, 1, "member %s has %d current assignments", m.Hex(), n)
	}
}

func TestGenerateInitial(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		f.member(models.GenderMale)
	}
	for i := 0; i < 4; i++ {
		f.member(models.GenderFemale)
	}
	peer := f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderMale, Active: true, IsCommitteeMember: true})
	m1, m2 := f.staff(models.GenderMale), f.staff(models.GenderMale)
	w1, w2 := f.staff(models.GenderFemale), f.staff(models.GenderFemale)

	res, err := f.eng.GenerateInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Count)

	pending, err := f.db.Communication().CountPendingByStaff(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pending[m1.ID])
	assert.Equal(t, 3, pending[m2.ID])
	assert.Equal(t, 2, pending[w1.ID])
	assert.Equal(t, 2, pending[w2.ID])

	_, err = f.db.Communication().GetCurrentForMember(ctx, peer.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotFound), "committee members are not assigned outreach")

	_, err = f.eng.GenerateInitial(ctx)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyExists))
	assert.Len(t, f.db.AllCommunication(), 10)
	assertSingleCurrent(t, f.db)
}

func TestPreviewInitial_DoesNotWrite(t *testing.T) {
	f := newFixture(t, nil)
	f.member(models.GenderMale)
	f.member(models.GenderMale)
	f.staff(models.GenderMale)

	rows, err := f.eng.PreviewInitial(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Empty(t, f.db.AllCommunication())
}

func TestAssignNewMember_FewestPending(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, b := f.staff(models.GenderMale), f.staff(models.GenderMale)

	f.assigned(t, f.member(models.GenderMale), a, day)
	// B has more rows, but only one is pending.
	f.assigned(t, f.member(models.GenderMale), b, day)
	done := f.assigned(t, f.member(models.GenderMale), b, day)
	require.NoError(t, f.db.Communication().MarkSuccessful(ctx, done.ID, f.now))
	done2 := f.assigned(t, f.member(models.GenderMale), b, day)
	require.NoError(t, f.db.Communication().MarkSuccessful(ctx, done2.ID, f.now))
	f.assigned(t, f.member(models.GenderMale), a, day)

	newcomer := f.member(models.GenderMale)
	got, err := f.eng.AssignNewMember(ctx, newcomer.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.CommitteeMemberID)
	assert.Equal(t, models.CommStatusPending, got.Status)
	assert.True(t, got.IsCurrent)

	_, err = f.eng.AssignNewMember(ctx, newcomer.ID)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyExists))

	peer := f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderMale, Active: true, IsCommitteeMember: true})
	_, err = f.eng.AssignNewMember(ctx, peer.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotEligible))
}

func TestMarkSuccessful(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner, other := f.staff(models.GenderFemale), f.staff(models.GenderFemale)
	m := f.member(models.GenderFemale)
	a := f.assigned(t, m, owner, 40*day)

	_, err := f.eng.MarkSuccessful(ctx, outreach.CallerFrom(other), a.ID, Contact{})
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))

	_, err = f.eng.MarkSuccessful(ctx, outreach.CallerFrom(owner), a.ID, Contact{Method: "fax"})
	assert.True(t, errors.Is(err, outreach.ErrInvalidInput))

	got, err := f.eng.MarkSuccessful(ctx, outreach.CallerFrom(owner), a.ID, Contact{
		Method: models.ContactCall,
		Notes:  "<b>Great</b> chat & coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommStatusSuccessful, got.Status)
	require.NotNil(t, got.LastContactAttempt)

	logs, err := f.eng.Logs(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].WasSuccessful)
	assert.Equal(t, "Great chat & coffee", logs[0].Notes)
	assert.Equal(t, owner.ID, logs[0].CreatedBy)

	// Terminal: not transferred however old, and cannot be marked twice.
	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Transferred)
	_, err = f.eng.MarkSuccessful(ctx, outreach.CallerFrom(owner), a.ID, Contact{})
	assert.True(t, errors.Is(err, outreach.ErrNotEligible))
}

func TestLogAttemptAndUpdateLog(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner, other := f.staff(models.GenderMale), f.staff(models.GenderMale)
	a := f.assigned(t, f.member(models.GenderMale), owner, day)

	got, err := f.eng.LogAttempt(ctx, outreach.CallerFrom(owner), a.ID, Contact{Method: models.ContactText, Notes: "no reply"})
	require.NoError(t, err)
	assert.Equal(t, models.CommStatusPending, got.Status)
	require.NotNil(t, got.LastContactAttempt)

	logs, err := f.eng.Logs(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].WasSuccessful)

	_, err = f.eng.UpdateLog(ctx, outreach.CallerFrom(other), logs[0].ID, Contact{Method: models.ContactCall})
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))

	updated, err := f.eng.UpdateLog(ctx, outreach.CallerFrom(owner), logs[0].ID, Contact{Method: models.ContactCall, Notes: "voicemail"})
	require.NoError(t, err)
	assert.Equal(t, models.ContactCall, updated.Method)
	assert.Equal(t, "voicemail", updated.Notes)
	assert.False(t, updated.WasSuccessful)
	require.NotNil(t, updated.UpdatedAt)
}

func TestProcessAutoTransfers_ThresholdBoundary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	b := f.staff(models.GenderMale)
	young := f.member(models.GenderMale)
	old := f.member(models.GenderMale)
	f.assigned(t, young, a, 29*day+23*time.Hour)
	f.assigned(t, old, a, 30*day)

	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, res.ThresholdDays)
	assert.Equal(t, 1, res.Transferred)
	assert.NotEmpty(t, res.BatchID)

	assert.Equal(t, a.ID, f.current(t, young.ID).CommitteeMemberID)
	moved := f.current(t, old.ID)
	assert.Equal(t, b.ID, moved.CommitteeMemberID)
	assert.Equal(t, models.CommStatusPending, moved.Status)
	assert.True(t, moved.AssignedDate.Equal(f.now))

	hist, err := f.eng.History(ctx, old.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.TransferAutoUnresponsive, hist[0].Reason)
	assert.Equal(t, res.BatchID, hist[0].BatchID)
	assertSingleCurrent(t, f.db)
}

func TestProcessAutoTransfers_UsesSettingsAndOverride(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	f.assigned(t, m, a, 10*day)

	require.NoError(t, f.db.Settings().Set(ctx, models.SettingUnresponsiveThresholdDays, "14"))
	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 14, res.ThresholdDays)
	assert.Zero(t, res.Transferred)

	seven := 7
	res, err = f.eng.ProcessAutoTransfers(ctx, &seven)
	require.NoError(t, err)
	assert.Equal(t, 7, res.ThresholdDays)
	assert.Equal(t, 1, res.Transferred)
}

func TestProcessAutoTransfers_NoRepeatUntilExhausted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, b, c := f.staff(models.GenderFemale), f.staff(models.GenderFemale), f.staff(models.GenderFemale)
	m := f.member(models.GenderFemale)
	f.assigned(t, m, a, 30*day)

	var owners []primitive.ObjectID
	for i := 0; i < 4; i++ {
		res, err := f.eng.ProcessAutoTransfers(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Transferred, "round %d", i+1)
		owners = append(owners, f.current(t, m.ID).CommitteeMemberID)
		assertSingleCurrent(t, f.db)
		f.now = f.now.Add(30 * day)
	}

	// B and C are untried; then everyone has had one turn, so the fewest-
	// attempts fallback goes back to list order excluding the holder.
	assert.Equal(t, []primitive.ObjectID{b.ID, c.ID, a.ID, b.ID}, owners)

	hist, err := f.eng.History(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 4)
}

func TestProcessAutoTransfers_SkipsWithoutAlternative(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	only := f.staff(models.GenderMale)
	f.staff(models.GenderFemale)
	m := f.member(models.GenderMale)
	f.assigned(t, m, only, 45*day)

	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Eligible)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Transferred)
	assert.Equal(t, only.ID, f.current(t, m.ID).CommitteeMemberID)
}

func TestProcessAutoTransfers_ClaimedIsLeftAlone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, a, 60*day)
	_, err := f.eng.Claim(ctx, outreach.CallerFrom(a), row.ID)
	require.NoError(t, err)

	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Transferred)
	assert.Equal(t, a.ID, f.current(t, m.ID).CommitteeMemberID)
}

func TestProcessAutoTransfers_FailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	b := f.staff(models.GenderMale)

	// A row whose member record is gone cannot be routed.
	ghost, err := models.NewCommunicationAssignment(f.id(), a.ID, f.now.Add(-40*day))
	require.NoError(t, err)
	f.db.PutCommunication(ghost)

	m := f.member(models.GenderMale)
	f.assigned(t, m, a, 35*day)

	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Eligible)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Transferred)
	assert.Equal(t, b.ID, f.current(t, m.ID).CommitteeMemberID)
}

func TestProcessAutoTransfers_RowChangedAfterListing(t *testing.T) {
	tests := []struct {
		name   string
		change func(f *fixture, a models.CommunicationAssignment) error
		check  func(t *testing.T, got models.CommunicationAssignment)
	}{
		{
			name: "contact made",
			change: func(f *fixture, a models.CommunicationAssignment) error {
				return f.db.Communication().MarkSuccessful(context.Background(), a.ID, f.now)
			},
			check: func(t *testing.T, got models.CommunicationAssignment) {
				assert.Equal(t, models.CommStatusSuccessful, got.Status)
			},
		},
		{
			name: "claimed",
			change: func(f *fixture, a models.CommunicationAssignment) error {
				return f.db.Communication().SetClaim(context.Background(), a.ID, true, &f.now)
			},
			check: func(t *testing.T, got models.CommunicationAssignment) {
				assert.True(t, got.IsClaimed)
				assert.Equal(t, models.CommStatusPending, got.Status)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			ctx := context.Background()
			owner := f.staff(models.GenderMale)
			f.staff(models.GenderMale)
			m := f.member(models.GenderMale)
			row := f.assigned(t, m, owner, 40*day)

			f.useAssignments(interleaved{
				CommunicationStore: f.db.Communication(),
				afterList: func(rows []models.CommunicationAssignment) {
					for _, a := range rows {
						require.NoError(t, tt.change(f, a))
					}
				},
			})

			res, err := f.eng.ProcessAutoTransfers(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Eligible)
			assert.Equal(t, 1, res.Skipped)
			assert.Zero(t, res.Transferred)
			assert.Zero(t, res.Failed)

			got := f.current(t, m.ID)
			assert.Equal(t, row.ID, got.ID)
			assert.Equal(t, owner.ID, got.CommitteeMemberID)
			assert.True(t, got.IsCurrent)
			tt.check(t, got)
			assert.Len(t, f.db.AllCommunication(), 1)
			assert.Empty(t, f.db.AllTransfers())
		})
	}
}

func TestProcessAutoTransfers_SkipsMembersOutOfRotation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderFemale)
	f.staff(models.GenderFemale)
	gone := f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderFemale, Active: false})
	grad := f.db.PutMember(models.Member{ID: f.id(), Gender: models.GenderFemale, Active: true, Graduated: true})
	f.assigned(t, gone, a, 40*day)
	f.assigned(t, grad, a, 40*day)

	pv, err := f.eng.PreviewAutoTransfers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pv.Rows, 2)
	for _, row := range pv.Rows {
		assert.True(t, row.Skipped)
	}

	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Transferred)
	assert.Zero(t, res.Failed)
	assert.Equal(t, a.ID, f.current(t, gone.ID).CommitteeMemberID)
	assert.Equal(t, a.ID, f.current(t, grad.ID).CommitteeMemberID)
}

func TestMarkSuccessful_RowTransferredAfterRead(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, owner, 40*day)

	f.useAssignments(interleaved{
		CommunicationStore: f.db.Communication(),
		afterGet: func(a models.CommunicationAssignment) {
			require.NoError(t, f.db.Communication().Supersede(ctx, a.ID))
		},
	})

	_, err := f.eng.MarkSuccessful(ctx, outreach.CallerFrom(owner), row.ID, Contact{Method: models.ContactCall})
	assert.True(t, errors.Is(err, outreach.ErrNotEligible))

	got, err := f.db.Communication().GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommStatusTransferred, got.Status)
	logs, err := f.eng.Logs(ctx, row.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestPreviewAutoTransfers_DoesNotWrite(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	b := f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	f.assigned(t, m, a, 31*day)

	pv, err := f.eng.PreviewAutoTransfers(ctx, nil)
	require.NoError(t, err)
	require.Len(t, pv.Rows, 1)
	assert.Equal(t, b.ID, pv.Rows[0].To)
	assert.Equal(t, 31, pv.Rows[0].DaysSince)
	assert.Equal(t, a.ID, f.current(t, m.ID).CommitteeMemberID)
	assert.Empty(t, f.db.AllTransfers())
}

func TestTransfer_Manual(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, b, c := f.staff(models.GenderMale), f.staff(models.GenderMale), f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, a, time.Hour)

	_, err := f.eng.Transfer(ctx, outreach.CallerFrom(c), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))

	out, err := f.eng.Transfer(ctx, outreach.CallerFrom(a), row.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, out.To)
	assert.Equal(t, models.CommStatusTransferred, out.Previous.Status)

	// An admin may move someone else's assignment.
	admin := outreach.Caller{ID: f.id(), Gender: models.GenderMale, Role: models.RoleOverseer}
	out, err = f.eng.Transfer(ctx, admin, out.Current.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, out.To)

	// The superseded row can no longer be transferred.
	_, err = f.eng.Transfer(ctx, outreach.CallerFrom(a), row.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotEligible))

	hist, err := f.eng.History(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.TransferManual, hist[0].Reason)
	assertSingleCurrent(t, f.db)
}

func TestTransfer_ReinstatesWithoutTransaction(t *testing.T) {
	f := newFixture(t, outreach.NoTx)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, a, 40*day)

	f.db.FailOn(memstore.OpCommInsert, errors.New("insert refused"))
	_, err := f.eng.Transfer(ctx, outreach.CallerFrom(a), row.ID)
	require.Error(t, err)
	f.db.FailOn(memstore.OpCommInsert, nil)

	got := f.current(t, m.ID)
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, models.CommStatusPending, got.Status)
	assert.Empty(t, f.db.AllTransfers())
}

func TestTransfer_RollsBackWhenLedgerFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.staff(models.GenderMale)
	f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, a, 40*day)

	f.db.FailOn(memstore.OpTransferAppend, errors.New("ledger down"))
	res, err := f.eng.ProcessAutoTransfers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got := f.current(t, m.ID)
	assert.Equal(t, row.ID, got.ID)
	assert.Len(t, f.db.AllCommunication(), 1)
}

func TestClaimMember_Takeover(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner, claimant, third := f.staff(models.GenderMale), f.staff(models.GenderMale), f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	f.assigned(t, m, owner, day)

	got, err := f.eng.ClaimMember(ctx, outreach.CallerFrom(claimant), m.ID)
	require.NoError(t, err)
	assert.Equal(t, claimant.ID, got.CommitteeMemberID)
	assert.True(t, got.IsClaimed)
	assert.True(t, got.IsCurrent)
	assertSingleCurrent(t, f.db)

	hist, err := f.eng.History(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.TransferClaimed, hist[0].Reason)

	// Claiming again is a no-op; someone else is refused.
	again, err := f.eng.ClaimMember(ctx, outreach.CallerFrom(claimant), m.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	_, err = f.eng.ClaimMember(ctx, outreach.CallerFrom(third), m.ID)
	assert.True(t, errors.Is(err, outreach.ErrAlreadyClaimed))

	_, err = f.eng.ReleaseMember(ctx, outreach.CallerFrom(third), m.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotOwner))
	released, err := f.eng.ReleaseMember(ctx, outreach.CallerFrom(claimant), m.ID)
	require.NoError(t, err)
	assert.False(t, released.IsClaimed)
}

func TestClaimMember_SuccessfulOtherOwnerIsRefused(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner, claimant := f.staff(models.GenderMale), f.staff(models.GenderMale)
	m := f.member(models.GenderMale)
	row := f.assigned(t, m, owner, day)
	_, err := f.eng.MarkSuccessful(ctx, outreach.CallerFrom(owner), row.ID, Contact{})
	require.NoError(t, err)

	_, err = f.eng.ClaimMember(ctx, outreach.CallerFrom(claimant), m.ID)
	assert.True(t, errors.Is(err, outreach.ErrNotEligible))
}

func TestClaimMember_NoCurrentRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	claimant := f.staff(models.GenderFemale)
	m := f.member(models.GenderFemale)

	got, err := f.eng.ClaimMember(ctx, outreach.CallerFrom(claimant), m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClaimed)
	assert.Equal(t, models.CommStatusPending, got.Status)
	assert.Empty(t, f.db.AllTransfers())
}

func TestChooseTarget(t *testing.T) {
	ids := make([]primitive.ObjectID, 4)
	pool := make([]models.CommitteeMember, 4)
	for i := range ids {
		ids[i], _ = primitive.ObjectIDFromHex(fmt.Sprintf("%024x", i+1))
		pool[i] = models.CommitteeMember{ID: ids[i]}
	}
	hist := func(from ...int) []models.TransferRecord {
		var out []models.TransferRecord
		for _, f := range from {
			out = append(out, models.TransferRecord{FromCommitteeMemberID: ids[f]})
		}
		return out
	}

	tests := []struct {
		name    string
		pool    []models.CommitteeMember
		current int
		history []models.TransferRecord
		want    int
		ok      bool
	}{
		{"first untried", pool, 0, nil, 1, true},
		{"skips tried", pool, 2, hist(0, 1), 3, true},
		{"fewest attempts after full cycle", pool, 3, hist(0, 1, 2, 0, 1), 2, true},
		{"tie goes to list order", pool, 3, hist(0, 1, 2), 0, true},
		{"single staff", pool[:1], 0, nil, 0, false},
		{"current not in pool", pool[1:2], 0, nil, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChooseTarget(tt.pool, ids[tt.current], tt.history)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, ids[tt.want], got.ID)
			}
		})
	}
}
