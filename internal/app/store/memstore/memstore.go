// Package memstore is an in-memory implementation of the outreach store
// interfaces. Engine tests and chapteradmin's --dry-store mode use it.
//
// It enforces the same uniqueness rules as the Mongo indexes: one prayer
// row per (member, period start) and one current communication row per
// member.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection.
type DB struct {
	mu        sync.Mutex
	members   map[primitive.ObjectID]models.Member
	staff     map[primitive.ObjectID]models.CommitteeMember
	prayer    map[primitive.ObjectID]models.PrayerAssignment
	comm      map[primitive.ObjectID]models.CommunicationAssignment
	logs      map[primitive.ObjectID]models.CommunicationLog
	transfers []models.TransferRecord
	settings  map[string]string
	faults    map[string]error
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		members:  map[primitive.ObjectID]models.Member{},
		staff:    map[primitive.ObjectID]models.CommitteeMember{},
		prayer:   map[primitive.ObjectID]models.PrayerAssignment{},
		comm:     map[primitive.ObjectID]models.CommunicationAssignment{},
		logs:     map[primitive.ObjectID]models.CommunicationLog{},
		settings: map[string]string{},
		faults:   map[string]error{},
	}
}

// Fault operation names accepted by FailOn.
const (
	OpPrayerInsert   = "prayer.insert"
	OpCommInsert     = "comm.insert"
	OpCommSupersede  = "comm.supersede"
	OpTransferAppend = "transfer.append"
	OpLogAppend      = "log.append"
	OpSettingsSet    = "settings.set"
)

// FailOn makes every later call of op return err until cleared with a nil
// err.
func (d *DB) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.faults, op)
		return
	}
	d.faults[op] = err
}

func (d *DB) fault(op string) error {
	return d.faults[op]
}

// PutMember stores m, assigning an ID if needed.
func (d *DB) PutMember(m models.Member) models.Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	d.members[m.ID] = m
	return m
}

// PutStaff stores cm, assigning an ID if needed.
func (d *DB) PutStaff(cm models.CommitteeMember) models.CommitteeMember {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cm.ID.IsZero() {
		cm.ID = primitive.NewObjectID()
	}
	d.staff[cm.ID] = cm
	return cm
}

// PutCommunication stores a communication row as-is, bypassing the
// single-current check. Tests use it to build aged or corrupt fixtures.
func (d *DB) PutCommunication(a models.CommunicationAssignment) models.CommunicationAssignment {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	d.comm[a.ID] = a
	return a
}

// AllCommunication returns every communication row in ID order.
func (d *DB) AllCommunication() []models.CommunicationAssignment {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.CommunicationAssignment, 0, len(d.comm))
	for _, a := range d.comm {
		out = append(out, a)
	}
	sortByID(out, func(a models.CommunicationAssignment) primitive.ObjectID { return a.ID })
	return out
}

// AllTransfers returns the transfer ledger in append order.
func (d *DB) AllTransfers() []models.TransferRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.TransferRecord(nil), d.transfers...)
}

// Members returns the member directory view.
func (d *DB) Members() *Members { return &Members{d} }

// Staff returns the committee directory view.
func (d *DB) Staff() *Staff { return &Staff{d} }

// Prayer returns the prayer assignment store view.
func (d *DB) Prayer() *Prayer { return &Prayer{d} }

// Communication returns the communication assignment store view.
func (d *DB) Communication() *Communication { return &Communication{d} }

// Logs returns the communication log store view.
func (d *DB) Logs() *Logs { return &Logs{d} }

// Transfers returns the transfer ledger view.
func (d *DB) Transfers() *Transfers { return &Transfers{d} }

// Settings returns the settings store view.
func (d *DB) Settings() *Settings { return &Settings{d} }

// WithTx snapshots every collection, runs fn and restores the snapshot if
// fn fails.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	snap := d.snapshot()
	d.mu.Unlock()

	if err := fn(ctx); err != nil {
		d.mu.Lock()
		d.restore(snap)
		d.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	prayer    map[primitive.ObjectID]models.PrayerAssignment
	comm      map[primitive.ObjectID]models.CommunicationAssignment
	logs      map[primitive.ObjectID]models.CommunicationLog
	transfers []models.TransferRecord
	settings  map[string]string
}

func (d *DB) snapshot() snapshot {
	return snapshot{
		prayer:    copyMap(d.prayer),
		comm:      copyMap(d.comm),
		logs:      copyMap(d.logs),
		transfers: append([]models.TransferRecord(nil), d.transfers...),
		settings:  copyMap(d.settings),
	}
}

func (d *DB) restore(s snapshot) {
	d.prayer = s.prayer
	d.comm = s.comm
	d.logs = s.logs
	d.transfers = s.transfers
	d.settings = s.settings
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortByID[T any](rows []T, id func(T) primitive.ObjectID) {
	sort.Slice(rows, func(i, j int) bool { return id(rows[i]).Hex() < id(rows[j]).Hex() })
}

/* ───────────────────────── directory ───────────────────────── */

// Members implements outreach.MemberDirectory.
type Members struct{ d *DB }

func (s *Members) GetByID(_ context.Context, id primitive.ObjectID) (models.Member, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	m, ok := s.d.members[id]
	if !ok {
		return models.Member{}, fmt.Errorf("member %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	return m, nil
}

func (s *Members) ListActive(_ context.Context, gender models.Gender) ([]models.Member, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []models.Member
	for _, m := range s.d.members {
		if !m.InRotation() {
			continue
		}
		if gender != "" && m.Gender != gender {
			continue
		}
		out = append(out, m)
	}
	sortByID(out, func(m models.Member) primitive.ObjectID { return m.ID })
	return out, nil
}

// Staff implements outreach.StaffDirectory.
type Staff struct{ d *DB }

func (s *Staff) GetByID(_ context.Context, id primitive.ObjectID) (models.CommitteeMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	cm, ok := s.d.staff[id]
	if !ok {
		return models.CommitteeMember{}, fmt.Errorf("committee member %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	return cm, nil
}

func (s *Staff) ListEligible(_ context.Context, gender models.Gender) ([]models.CommitteeMember, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	all := make([]models.CommitteeMember, 0, len(s.d.staff))
	for _, cm := range s.d.staff {
		all = append(all, cm)
	}
	return staffpolicy.Eligible(all, gender), nil
}

/* ───────────────────────── prayer ───────────────────────── */

// Prayer implements outreach.PrayerStore.
type Prayer struct{ d *DB }

func (s *Prayer) GetByID(_ context.Context, id primitive.ObjectID) (models.PrayerAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.prayer[id]
	if !ok {
		return models.PrayerAssignment{}, fmt.Errorf("prayer assignment %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	return a, nil
}

func (s *Prayer) GetForMember(_ context.Context, memberID primitive.ObjectID, periodStart time.Time) (models.PrayerAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, a := range s.d.prayer {
		if a.MemberID == memberID && a.PeriodStart.Equal(periodStart) {
			return a, nil
		}
	}
	return models.PrayerAssignment{}, fmt.Errorf("prayer assignment for member %s: %w", memberID.Hex(), outreach.ErrNotFound)
}

func (s *Prayer) CountForPeriod(_ context.Context, periodStart time.Time) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for _, a := range s.d.prayer {
		if a.PeriodStart.Equal(periodStart) {
			n++
		}
	}
	return n, nil
}

func (s *Prayer) ListForPeriod(_ context.Context, periodStart time.Time) ([]models.PrayerAssignment, error) {
	return s.list(func(a models.PrayerAssignment) bool { return a.PeriodStart.Equal(periodStart) }), nil
}

func (s *Prayer) ListForStaff(_ context.Context, cmID primitive.ObjectID, periodStart time.Time) ([]models.PrayerAssignment, error) {
	return s.list(func(a models.PrayerAssignment) bool {
		return a.CommitteeMemberID == cmID && a.PeriodStart.Equal(periodStart)
	}), nil
}

func (s *Prayer) list(keep func(models.PrayerAssignment) bool) []models.PrayerAssignment {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []models.PrayerAssignment
	for _, a := range s.d.prayer {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortByID(out, func(a models.PrayerAssignment) primitive.ObjectID { return a.ID })
	return out
}

func (s *Prayer) Insert(_ context.Context, a models.PrayerAssignment) (models.PrayerAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.insertLocked(&a); err != nil {
		return models.PrayerAssignment{}, err
	}
	return a, nil
}

func (s *Prayer) InsertMany(_ context.Context, rows []models.PrayerAssignment) (int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	n, failed := 0, 0
	var first error
	for i := range rows {
		if err := s.insertLocked(&rows[i]); err != nil {
			failed++
			if first == nil {
				first = err
			}
			continue
		}
		n++
	}
	if failed > 0 {
		return n, fmt.Errorf("%d of %d prayer rows not inserted: %w", failed, len(rows), first)
	}
	return n, nil
}

func (s *Prayer) insertLocked(a *models.PrayerAssignment) error {
	if err := s.d.fault(OpPrayerInsert); err != nil {
		return err
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	for _, x := range s.d.prayer {
		if x.ID == a.ID || (x.MemberID == a.MemberID && x.PeriodStart.Equal(a.PeriodStart)) {
			return fmt.Errorf("prayer assignment for member %s in %s: %w", a.MemberID.Hex(), a.Period(), outreach.ErrAlreadyExists)
		}
	}
	s.d.prayer[a.ID] = *a
	return nil
}

func (s *Prayer) SetClaim(_ context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.prayer[id]
	if !ok {
		return fmt.Errorf("prayer assignment %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	a.IsClaimed = claimed
	a.ClaimedAt = at
	s.d.prayer[id] = a
	return nil
}

func (s *Prayer) Reassign(_ context.Context, id, cmID primitive.ObjectID, claimedAt time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.prayer[id]
	if !ok {
		return fmt.Errorf("prayer assignment %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	a.CommitteeMemberID = cmID
	a.IsClaimed = true
	a.ClaimedAt = &claimedAt
	s.d.prayer[id] = a
	return nil
}

// DeleteForMember removes every prayer row for memberID.
func (s *Prayer) DeleteForMember(_ context.Context, memberID primitive.ObjectID) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for id, a := range s.d.prayer {
		if a.MemberID == memberID {
			delete(s.d.prayer, id)
			n++
		}
	}
	return n, nil
}

/* ───────────────────────── communication ───────────────────────── */

// Communication implements outreach.CommunicationStore.
type Communication struct{ d *DB }

func (s *Communication) GetByID(_ context.Context, id primitive.ObjectID) (models.CommunicationAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.comm[id]
	if !ok {
		return models.CommunicationAssignment{}, fmt.Errorf("communication assignment %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	return a, nil
}

func (s *Communication) GetCurrentForMember(_ context.Context, memberID primitive.ObjectID) (models.CommunicationAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	for _, a := range s.d.comm {
		if a.MemberID == memberID && a.IsCurrent {
			return a, nil
		}
	}
	return models.CommunicationAssignment{}, fmt.Errorf("current communication assignment for member %s: %w", memberID.Hex(), outreach.ErrNotFound)
}

func (s *Communication) CountCurrent(_ context.Context) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var n int64
	for _, a := range s.d.comm {
		if a.IsCurrent {
			n++
		}
	}
	return n, nil
}

func (s *Communication) ListCurrentForStaff(_ context.Context, cmID primitive.ObjectID) ([]models.CommunicationAssignment, error) {
	return s.list(func(a models.CommunicationAssignment) bool {
		return a.IsCurrent && a.CommitteeMemberID == cmID
	}), nil
}

func (s *Communication) ListStale(_ context.Context, cutoff time.Time) ([]models.CommunicationAssignment, error) {
	out := s.list(func(a models.CommunicationAssignment) bool {
		return a.IsPending() && !a.IsClaimed && !a.AssignedDate.After(cutoff)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].AssignedDate.Before(out[j].AssignedDate) })
	return out, nil
}

func (s *Communication) CountPendingByStaff(_ context.Context) (map[primitive.ObjectID]int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := map[primitive.ObjectID]int{}
	for _, a := range s.d.comm {
		if a.IsPending() {
			out[a.CommitteeMemberID]++
		}
	}
	return out, nil
}

func (s *Communication) list(keep func(models.CommunicationAssignment) bool) []models.CommunicationAssignment {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []models.CommunicationAssignment
	for _, a := range s.d.comm {
		if keep(a) {
			out = append(out, a)
		}
	}
	sortByID(out, func(a models.CommunicationAssignment) primitive.ObjectID { return a.ID })
	return out
}

func (s *Communication) Insert(_ context.Context, a models.CommunicationAssignment) (models.CommunicationAssignment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.insertLocked(&a); err != nil {
		return models.CommunicationAssignment{}, err
	}
	return a, nil
}

func (s *Communication) InsertMany(_ context.Context, rows []models.CommunicationAssignment) (int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	n, failed := 0, 0
	var first error
	for i := range rows {
		if err := s.insertLocked(&rows[i]); err != nil {
			failed++
			if first == nil {
				first = err
			}
			continue
		}
		n++
	}
	if failed > 0 {
		return n, fmt.Errorf("%d of %d communication rows not inserted: %w", failed, len(rows), first)
	}
	return n, nil
}

func (s *Communication) insertLocked(a *models.CommunicationAssignment) error {
	if err := s.d.fault(OpCommInsert); err != nil {
		return err
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	for _, x := range s.d.comm {
		if x.ID == a.ID || (a.IsCurrent && x.IsCurrent && x.MemberID == a.MemberID) {
			return fmt.Errorf("current communication assignment for member %s: %w", a.MemberID.Hex(), outreach.ErrAlreadyExists)
		}
	}
	s.d.comm[a.ID] = *a
	return nil
}

func (s *Communication) update(id primitive.ObjectID, fn func(a *models.CommunicationAssignment) error) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	a, ok := s.d.comm[id]
	if !ok {
		return fmt.Errorf("communication assignment %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	if err := fn(&a); err != nil {
		return err
	}
	s.d.comm[id] = a
	return nil
}

func (s *Communication) MarkSuccessful(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.update(id, func(a *models.CommunicationAssignment) error {
		if err := requireOpen(a); err != nil {
			return err
		}
		a.Status = models.CommStatusSuccessful
		a.LastContactAttempt = &at
		return nil
	})
}

func (s *Communication) TouchContact(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return s.update(id, func(a *models.CommunicationAssignment) error {
		if err := requireOpen(a); err != nil {
			return err
		}
		a.LastContactAttempt = &at
		return nil
	})
}

func (s *Communication) Supersede(_ context.Context, id primitive.ObjectID) error {
	if err := s.d.fault(OpCommSupersede); err != nil {
		return err
	}
	return s.update(id, func(a *models.CommunicationAssignment) error {
		if err := requireOpen(a); err != nil {
			return err
		}
		if a.IsClaimed {
			return fmt.Errorf("communication assignment %s is claimed: %w", id.Hex(), outreach.ErrNotFound)
		}
		a.Status = models.CommStatusTransferred
		a.IsCurrent = false
		return nil
	})
}

// requireOpen mirrors the Mongo filter for writes that need a current, pending row.
func requireOpen(a *models.CommunicationAssignment) error {
	if !a.IsCurrent || a.Status != models.CommStatusPending {
		return fmt.Errorf("communication assignment %s is no longer open: %w", a.ID.Hex(), outreach.ErrNotFound)
	}
	return nil
}

func (s *Communication) Reinstate(_ context.Context, id primitive.ObjectID) error {
	return s.update(id, func(a *models.CommunicationAssignment) error {
		a.Status = models.CommStatusPending
		a.IsCurrent = true
		return nil
	})
}

func (s *Communication) SetClaim(_ context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error {
	return s.update(id, func(a *models.CommunicationAssignment) error {
		a.IsClaimed = claimed
		a.ClaimedAt = at
		return nil
	})
}

/* ───────────────────────── logs & ledger ───────────────────────── */

// Logs implements outreach.LogStore.
type Logs struct{ d *DB }

func (s *Logs) Append(_ context.Context, l models.CommunicationLog) (models.CommunicationLog, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fault(OpLogAppend); err != nil {
		return models.CommunicationLog{}, err
	}
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	s.d.logs[l.ID] = l
	return l, nil
}

func (s *Logs) GetByID(_ context.Context, id primitive.ObjectID) (models.CommunicationLog, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	l, ok := s.d.logs[id]
	if !ok {
		return models.CommunicationLog{}, fmt.Errorf("communication log %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	return l, nil
}

func (s *Logs) UpdateDetails(_ context.Context, id primitive.ObjectID, method, notes string, at time.Time) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	l, ok := s.d.logs[id]
	if !ok {
		return fmt.Errorf("communication log %s: %w", id.Hex(), outreach.ErrNotFound)
	}
	l.Method = method
	l.Notes = notes
	l.UpdatedAt = &at
	s.d.logs[id] = l
	return nil
}

func (s *Logs) ListForAssignment(_ context.Context, assignmentID primitive.ObjectID) ([]models.CommunicationLog, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []models.CommunicationLog
	for _, l := range s.d.logs {
		if l.AssignmentID == assignmentID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactedAt.Before(out[j].ContactedAt) })
	return out, nil
}

// Transfers implements outreach.TransferStore.
type Transfers struct{ d *DB }

func (s *Transfers) Append(_ context.Context, r models.TransferRecord) (models.TransferRecord, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fault(OpTransferAppend); err != nil {
		return models.TransferRecord{}, err
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.d.transfers = append(s.d.transfers, r)
	return r, nil
}

func (s *Transfers) ListForMember(_ context.Context, memberID primitive.ObjectID) ([]models.TransferRecord, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	var out []models.TransferRecord
	for _, r := range s.d.transfers {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Settings implements outreach.SettingsStore.
type Settings struct{ d *DB }

func (s *Settings) Load(_ context.Context) (map[string]string, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return copyMap(s.d.settings), nil
}

func (s *Settings) Set(_ context.Context, key, value string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if err := s.d.fault(OpSettingsSet); err != nil {
		return err
	}
	s.d.settings[key] = value
	return nil
}

var (
	_ outreach.MemberDirectory    = (*Members)(nil)
	_ outreach.StaffDirectory     = (*Staff)(nil)
	_ outreach.PrayerStore        = (*Prayer)(nil)
	_ outreach.CommunicationStore = (*Communication)(nil)
	_ outreach.LogStore           = (*Logs)(nil)
	_ outreach.TransferStore      = (*Transfers)(nil)
	_ outreach.SettingsStore      = (*Settings)(nil)
	_ outreach.Transactor         = (*DB)(nil)
)
