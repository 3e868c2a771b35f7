// Package transfer implements communication assignments: one current
// outreach owner per member, contact logging, and the transfer of
// unresponsive assignments to another committee member.
//
// A transfer never returns a member to someone who already held them until
// every same-gender staff member has had a turn; after that it picks the
// staff member with the fewest prior attempts.
package transfer

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
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Deps are the collaborators of an Engine. Tx defaults to outreach.NoTx;
// Log, Metrics, Now and Rand are optional.
type Deps struct {
	Members     outreach.MemberDirectory
	Staff       outreach.StaffDirectory
	Assignments outreach.CommunicationStore
	Logs        outreach.LogStore
	Transfers   outreach.TransferStore
	Settings    outreach.SettingsStore
	Tx          outreach.Transactor
	Log         *zap.Logger
	Metrics     *metrics.Outreach
	Now         func() time.Time
	Rand        *rand.Rand
}

// Engine runs communication operations.
type Engine struct {
	members   outreach.MemberDirectory
	staff     outreach.StaffDirectory
	store     outreach.CommunicationStore
	logs      outreach.LogStore
	transfers outreach.TransferStore
	settings  outreach.SettingsStore
	tx        outreach.Transactor
	log       *zap.Logger
	metrics   *metrics.Outreach
	now       func() time.Time
	rand      *rand.Rand
}

// New builds an Engine.
func New(d Deps) *Engine {
	e := &Engine{
		members:   d.Members,
		staff:     d.Staff,
		store:     d.Assignments,
		logs:      d.Logs,
		transfers: d.Transfers,
		settings:  d.Settings,
		tx:        d.Tx,
		log:       d.Log,
		metrics:   d.Metrics,
		now:       d.Now,
		rand:      d.Rand,
	}
	if e.tx == nil {
		e.tx = outreach.NoTx
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// GenerateResult reports an initial generation.
type GenerateResult struct {
	Count int `json:"count"`
}

// GenerateInitial gives every active member outside the committee a
// pending assignment. It fails with ErrAlreadyExists if any current
// assignment exists.
func (e *Engine) GenerateInitial(ctx context.Context) (GenerateResult, error) {
	var res GenerateResult
	if err := e.ensureNoCurrent(ctx); err != nil {
		return res, err
	}

	slots, _, _, err := e.allocate(ctx, allocator.Shuffle)
	if err != nil {
		return res, err
	}
	if len(slots) == 0 {
		e.log.Info("communication generation: no active members")
		return res, nil
	}

	now := e.now()
	rows := make([]models.CommunicationAssignment, 0, len(slots))
	for _, s := range slots {
		a, err := models.NewCommunicationAssignment(s.MemberID, s.CommitteeMemberID, now)
		if err != nil {
			return res, err
		}
		rows = append(rows, a)
	}

	n, err := e.store.InsertMany(ctx, rows)
	res.Count = n
	if err != nil {
		if n == 0 {
			return res, fmt.Errorf("insert communication assignments: %w", err)
		}
		e.log.Warn("communication generation: some rows not inserted",
			zap.Int("created", n),
			zap.Int("failed", len(rows)-n),
			zap.Error(err))
	}
	e.log.Info("communication assignments generated", zap.Int("count", n))
	return res, nil
}

func (e *Engine) ensureNoCurrent(ctx context.Context) error {
	n, err := e.store.CountCurrent(ctx)
	if err != nil {
		return fmt.Errorf("count current communication assignments: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("current communication assignments: %w", outreach.ErrAlreadyExists)
	}
	return nil
}

func (e *Engine) allocate(ctx context.Context, mode allocator.Mode) ([]allocator.Slot, []models.Member, []models.CommitteeMember, error) {
	members, err := e.members.ListActive(ctx, "")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list members: %w", err)
	}
	members = outreach.CommunicationPool(members)
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

// AssignNewMember gives one member a pending assignment with the
// same-gender staff member carrying the fewest pending assignments.
func (e *Engine) AssignNewMember(ctx context.Context, memberID primitive.ObjectID) (models.CommunicationAssignment, error) {
	m, err := e.activeMember(ctx, memberID)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	if m.IsCommitteeMember {
		return models.CommunicationAssignment{}, fmt.Errorf("member %s serves on the committee: %w", memberID.Hex(), outreach.ErrNotEligible)
	}

	if _, err := e.store.GetCurrentForMember(ctx, memberID); err == nil {
		return models.CommunicationAssignment{}, fmt.Errorf("current communication assignment for member %s: %w", memberID.Hex(), outreach.ErrAlreadyExists)
	} else if !isNotFound(err) {
		return models.CommunicationAssignment{}, err
	}

	staff, err := e.staff.ListEligible(ctx, m.Gender)
	if err != nil {
		return models.CommunicationAssignment{}, fmt.Errorf("list staff: %w", err)
	}
	if len(staff) == 0 {
		return models.CommunicationAssignment{}, fmt.Errorf("%w for gender %s", outreach.ErrNoEligibleStaff, m.Gender)
	}

	pending, err := e.store.CountPendingByStaff(ctx)
	if err != nil {
		return models.CommunicationAssignment{}, fmt.Errorf("count pending: %w", err)
	}
	best := staff[0]
	for _, cm := range staff[1:] {
		if pending[cm.ID] < pending[best.ID] {
			best = cm
		}
	}

	a, err := models.NewCommunicationAssignment(m.ID, best.ID, e.now())
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	a, err = e.store.Insert(ctx, a)
	if err != nil {
		return models.CommunicationAssignment{}, err
	}
	e.log.Info("communication assignment added for new member",
		zap.String("member_id", m.ID.Hex()),
		zap.String("committee_member_id", best.ID.Hex()))
	return a, nil
}

func (e *Engine) activeMember(ctx context.Context, memberID primitive.ObjectID) (models.Member, error) {
	m, err := e.members.GetByID(ctx, memberID)
	if err != nil {
		return models.Member{}, err
	}
	if !m.InRotation() {
		return models.Member{}, fmt.Errorf("member %s: %w", memberID.Hex(), outreach.ErrInactiveMember)
	}
	return m, nil
}

// ListMine returns the caller's current assignments.
func (e *Engine) ListMine(ctx context.Context, caller outreach.Caller) ([]models.CommunicationAssignment, error) {
	return e.store.ListCurrentForStaff(ctx, caller.ID)
}

// History returns the transfer ledger for a member, oldest first.
func (e *Engine) History(ctx context.Context, memberID primitive.ObjectID) ([]models.TransferRecord, error) {
	return e.transfers.ListForMember(ctx, memberID)
}

func isNotFound(err error) bool {
	return errors.Is(err, outreach.ErrNotFound)
}
