// internal/domain/models/communication_assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Communication assignment statuses.
const (
	CommStatusPending     = "pending"
	CommStatusSuccessful  = "successful"  // terminal; stays current
	CommStatusTransferred = "transferred" // superseded by a newer row
)

// CommunicationAssignment binds a member to a committee member for an
// open-ended outreach attempt. At most one row per member has IsCurrent=true.
//
// AssignedDate is stored as a BSON date (epoch milliseconds) and is the clock
// the unresponsive threshold is measured against.
type CommunicationAssignment struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID           primitive.ObjectID `bson:"member_id" json:"member_id"`
	CommitteeMemberID  primitive.ObjectID `bson:"committee_member_id" json:"committee_member_id"`
	AssignedDate       time.Time          `bson:"assigned_date" json:"assigned_date"`
	Status             string             `bson:"status" json:"status"`
	IsCurrent          bool               `bson:"is_current" json:"is_current"`
	IsClaimed          bool               `bson:"is_claimed" json:"is_claimed"`
	ClaimedAt          *time.Time         `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
	LastContactAttempt *time.Time         `bson:"last_contact_attempt,omitempty" json:"last_contact_attempt,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}

// NewCommunicationAssignment builds a pending, current, unclaimed assignment.
func NewCommunicationAssignment(memberID, committeeMemberID primitive.ObjectID, now time.Time) (CommunicationAssignment, error) {
	if memberID.IsZero() {
		return CommunicationAssignment{}, errMissingMember
	}
	if committeeMemberID.IsZero() {
		return CommunicationAssignment{}, errMissingStaff
	}
	now = now.UTC()
	return CommunicationAssignment{
		ID:                primitive.NewObjectID(),
		MemberID:          memberID,
		CommitteeMemberID: committeeMemberID,
		AssignedDate:      now,
		Status:            CommStatusPending,
		IsCurrent:         true,
		CreatedAt:         now,
	}, nil
}

// NewClaimedCommunicationAssignment builds a current assignment already
// claimed by its committee member.
func NewClaimedCommunicationAssignment(memberID, committeeMemberID primitive.ObjectID, now time.Time) (CommunicationAssignment, error) {
	a, err := NewCommunicationAssignment(memberID, committeeMemberID, now)
	if err != nil {
		return a, err
	}
	at := a.AssignedDate
	a.IsClaimed = true
	a.ClaimedAt = &at
	return a, nil
}

// IsPending reports whether the assignment is still awaiting contact.
func (a CommunicationAssignment) IsPending() bool {
	return a.IsCurrent && a.Status == CommStatusPending
}
