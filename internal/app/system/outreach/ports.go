// internal/app/system/outreach/ports.go
package outreach

import (
	"context"
	"time"

	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberDirectory is the part of the directory store the engines read.
type MemberDirectory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error)
	// ListActive returns active, non-graduated members. An empty gender
	// means all genders.
	ListActive(ctx context.Context, gender models.Gender) ([]models.Member, error)
}

// StaffDirectory lists committee members. ListEligible applies
// staffpolicy.IsEligible and returns members sorted by ID.
type StaffDirectory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.CommitteeMember, error)
	ListEligible(ctx context.Context, gender models.Gender) ([]models.CommitteeMember, error)
}

// PrayerStore holds PrayerAssignment rows keyed by (member, period start).
type PrayerStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.PrayerAssignment, error)
	GetForMember(ctx context.Context, memberID primitive.ObjectID, periodStart time.Time) (models.PrayerAssignment, error)
	CountForPeriod(ctx context.Context, periodStart time.Time) (int64, error)
	ListForPeriod(ctx context.Context, periodStart time.Time) ([]models.PrayerAssignment, error)
	ListForStaff(ctx context.Context, committeeMemberID primitive.ObjectID, periodStart time.Time) ([]models.PrayerAssignment, error)
	Insert(ctx context.Context, a models.PrayerAssignment) (models.PrayerAssignment, error)
	// InsertMany inserts rows independently and returns how many were
	// stored. A non-nil error describes the rows that were not.
	InsertMany(ctx context.Context, rows []models.PrayerAssignment) (int, error)
	SetClaim(ctx context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error
	// Reassign points the row at committeeMemberID and marks it claimed.
	Reassign(ctx context.Context, id, committeeMemberID primitive.ObjectID, claimedAt time.Time) error
}

// CommunicationStore holds CommunicationAssignment rows.
type CommunicationStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.CommunicationAssignment, error)
	GetCurrentForMember(ctx context.Context, memberID primitive.ObjectID) (models.CommunicationAssignment, error)
	CountCurrent(ctx context.Context) (int64, error)
	ListCurrentForStaff(ctx context.Context, committeeMemberID primitive.ObjectID) ([]models.CommunicationAssignment, error)
	// ListStale returns current, pending, unclaimed rows assigned at or
	// before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]models.CommunicationAssignment, error)
	// CountPendingByStaff counts current pending rows per committee member.
	CountPendingByStaff(ctx context.Context) (map[primitive.ObjectID]int, error)
	Insert(ctx context.Context, a models.CommunicationAssignment) (models.CommunicationAssignment, error)
	InsertMany(ctx context.Context, rows []models.CommunicationAssignment) (int, error)
	// MarkSuccessful and TouchContact only match a current, pending row and
	// return ErrNotFound otherwise.
	MarkSuccessful(ctx context.Context, id primitive.ObjectID, at time.Time) error
	TouchContact(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// Supersede marks a current, pending, unclaimed row transferred and
	// non-current. It returns ErrNotFound when the row no longer matches.
	Supersede(ctx context.Context, id primitive.ObjectID) error
	// Reinstate undoes Supersede when the replacement could not be stored.
	Reinstate(ctx context.Context, id primitive.ObjectID) error
	SetClaim(ctx context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error
}

// LogStore holds CommunicationLog rows.
type LogStore interface {
	Append(ctx context.Context, l models.CommunicationLog) (models.CommunicationLog, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.CommunicationLog, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, method, notes string, at time.Time) error
	ListForAssignment(ctx context.Context, assignmentID primitive.ObjectID) ([]models.CommunicationLog, error)
}

// TransferStore is the append-only transfer ledger.
type TransferStore interface {
	Append(ctx context.Context, r models.TransferRecord) (models.TransferRecord, error)
	ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]models.TransferRecord, error)
}

// SettingsStore is the global key/value tunables store.
type SettingsStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Transactor runs fn as one unit of work. Implementations that cannot
// provide multi-document transactions run fn directly.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactorFunc adapts a function to Transactor.
type TransactorFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// WithTx calls f.
func (f TransactorFunc) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTx runs fn without a transaction.
var NoTx Transactor = TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
