// internal/domain/models/member.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender is used to match members with committee members of the same gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Genders lists every valid gender in a stable order.
var Genders = []Gender{GenderMale, GenderFemale}

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ParseGender normalizes s ("Male", " f ", "female") to a Gender.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale, true
	case "female", "f":
		return GenderFemale, true
	}
	return "", false
}

// Member is a student tracked for prayer and outreach.
//
// NOTE:
//   - Assignment rows reference members by ID. Deleting a member deletes its
//     assignment, log and transfer rows as well.
//   - IsCommitteeMember marks students who also serve on the committee; they
//     are left out of communication pools (see outreach.CommunicationPool).
type Member struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName         string             `bson:"first_name" json:"first_name"`
	LastName          string             `bson:"last_name" json:"last_name"`
	LastNameCI        string             `bson:"last_name_ci" json:"-"` // folded for sorting
	Email             string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Gender            Gender             `bson:"gender" json:"gender"`
	Active            bool               `bson:"active" json:"active"`
	Graduated         bool               `bson:"graduated" json:"graduated"`
	IsCommitteeMember bool               `bson:"is_committee_member" json:"is_committee_member"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// InRotation reports whether the member should receive assignments.
func (m Member) InRotation() bool {
	return m.Active && !m.Graduated
}
