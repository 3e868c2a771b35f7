// internal/domain/models/communication_log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact methods recorded on a communication log.
const (
	ContactText     = "text"
	ContactCall     = "call"
	ContactInPerson = "in_person"
	ContactEmail    = "email"
	ContactSocial   = "social"
	ContactOther    = "other"
)

// IsContactMethod reports whether m is a known contact method.
func IsContactMethod(m string) bool {
	switch m {
	case ContactText, ContactCall, ContactInPerson, ContactEmail, ContactSocial, ContactOther:
		return true
	}
	return false
}

// CommunicationLog is one contact attempt against a communication assignment.
// Rows are append-only; the author may correct Method and Notes afterwards.
type CommunicationLog struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AssignmentID      primitive.ObjectID `bson:"assignment_id" json:"assignment_id"`
	MemberID          primitive.ObjectID `bson:"member_id" json:"member_id"`
	CommitteeMemberID primitive.ObjectID `bson:"committee_member_id" json:"committee_member_id"`
	Method            string             `bson:"method" json:"method"`
	ContactedAt       time.Time          `bson:"contacted_at" json:"contacted_at"`
	WasSuccessful     bool               `bson:"was_successful" json:"was_successful"`
	Notes             string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy         primitive.ObjectID `bson:"created_by" json:"created_by"`
	UpdatedAt         *time.Time         `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
