// internal/domain/models/committee_member.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Committee roles. Only RoleCommitteeMember receives rotation and transfer
// assignments; the others may use the product but are not in the staff pool.
const (
	RoleCommitteeMember = "committee_member"
	RoleDeveloper       = "developer"
	RoleOverseer        = "overseer"
	RolePresident       = "president"
)

// Committee member account states.
const (
	StaffStatusPending  = "pending"  // invited, no linked identity yet
	StaffStatusActive   = "active"   // identity linked
	StaffStatusDisabled = "disabled" // deactivated by an admin
)

// IsKnownRole reports whether role is one of the committee roles.
func IsKnownRole(role string) bool {
	switch role {
	case RoleCommitteeMember, RoleDeveloper, RoleOverseer, RolePresident:
		return true
	}
	return false
}

// CommitteeMember is a staff identity eligible to receive assignments.
type CommitteeMember struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName   string             `bson:"first_name" json:"first_name"`
	LastName    string             `bson:"last_name" json:"last_name"`
	LastNameCI  string             `bson:"last_name_ci" json:"-"`
	Email       string             `bson:"email" json:"email"`
	Gender      Gender             `bson:"gender" json:"gender"`
	Role        string             `bson:"role" json:"role"`
	Status      string             `bson:"status" json:"status"`
	Active      bool               `bson:"active" json:"active"`
	AuthSubject string             `bson:"auth_subject,omitempty" json:"-"` // linked identity

	InvitedAt   time.Time  `bson:"invited_at" json:"invited_at"`
	ActivatedAt *time.Time `bson:"activated_at,omitempty" json:"activated_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (c CommitteeMember) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
