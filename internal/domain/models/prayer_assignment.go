// internal/domain/models/prayer_assignment.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrayerAssignment binds one member to one committee member for a month.
//
// BucketNumber drives rotation only and is never shown to users. Rows are
// superseded by a new row for the next period rather than updated; the only
// in-place changes are claim toggles and claim takeovers.
type PrayerAssignment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID          primitive.ObjectID `bson:"member_id" json:"member_id"`
	CommitteeMemberID primitive.ObjectID `bson:"committee_member_id" json:"committee_member_id"`
	BucketNumber      int                `bson:"bucket_number" json:"-"`
	PeriodStart       time.Time          `bson:"period_start" json:"period_start"`
	PeriodEnd         time.Time          `bson:"period_end" json:"period_end"`
	IsClaimed         bool               `bson:"is_claimed" json:"is_claimed"`
	ClaimedAt         *time.Time         `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

var (
	errMissingMember = errors.New("member id is required")
	errMissingStaff  = errors.New("committee member id is required")
	errBadBucket     = errors.New("bucket number must be >= 1")
)

// NewPrayerAssignment builds an unclaimed assignment for period.
func NewPrayerAssignment(memberID, committeeMemberID primitive.ObjectID, bucket int, period Period, now time.Time) (PrayerAssignment, error) {
	if memberID.IsZero() {
		return PrayerAssignment{}, errMissingMember
	}
	if committeeMemberID.IsZero() {
		return PrayerAssignment{}, errMissingStaff
	}
	if bucket < 1 {
		return PrayerAssignment{}, errBadBucket
	}
	return PrayerAssignment{
		ID:                primitive.NewObjectID(),
		MemberID:          memberID,
		CommitteeMemberID: committeeMemberID,
		BucketNumber:      bucket,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		CreatedAt:         now.UTC(),
	}, nil
}

// Period returns the month this assignment covers.
func (a PrayerAssignment) Period() Period {
	return MonthOf(a.PeriodStart)
}
