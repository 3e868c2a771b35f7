// internal/app/system/outreach/caller.go
package outreach

import (
	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the committee member on whose behalf an operation runs.
type Caller struct {
	ID     primitive.ObjectID
	Gender models.Gender
	Role   string
}

// CallerFrom builds a Caller from a committee member record.
func CallerFrom(cm models.CommitteeMember) Caller {
	return Caller{ID: cm.ID, Gender: cm.Gender, Role: cm.Role}
}

// IsAdmin reports whether the caller holds an administrative role.
func (c Caller) IsAdmin() bool {
	return staffpolicy.IsAdminRole(c.Role)
}
