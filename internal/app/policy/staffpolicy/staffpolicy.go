// Package staffpolicy decides which committee members take part in the
// outreach rotation and which may administer it.
//
// Rules:
//   - Only active accounts with role committee_member receive prayer and
//     communication assignments.
//   - developer, overseer and president may use the product and run the
//     administrative operations, but never receive assignments.
//
// Every query or filter that selects staff for allocation goes through this
// package so the rules cannot drift between call sites.
package staffpolicy

import (
	"sort"

	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// IsEligible reports whether cm may receive rotation and transfer assignments.
func IsEligible(cm models.CommitteeMember) bool {
	return cm.Active && cm.Role == models.RoleCommitteeMember
}

// IsAdminRole reports whether role may run generation, rotation and manual
// transfers on behalf of others.
func IsAdminRole(role string) bool {
	switch role {
	case models.RoleDeveloper, models.RoleOverseer, models.RolePresident:
		return true
	}
	return false
}

// Filter returns the Mongo filter matching IsEligible, optionally narrowed to
// one gender.
func Filter(gender models.Gender) bson.M {
	f := bson.M{"active": true, "role": models.RoleCommitteeMember}
	if gender != "" {
		f["gender"] = gender
	}
	return f
}

// Eligible filters staff down to eligible members of gender (all genders
// when empty) and returns them in ID order.
func Eligible(staff []models.CommitteeMember, gender models.Gender) []models.CommitteeMember {
	out := make([]models.CommitteeMember, 0, len(staff))
	for _, cm := range staff {
		if !IsEligible(cm) {
			continue
		}
		if gender != "" && cm.Gender != gender {
			continue
		}
		out = append(out, cm)
	}
	SortByID(out)
	return out
}

// SortByID orders staff by ObjectID. Rotation maps bucket b to the b-th
// member of this order.
func SortByID(staff []models.CommitteeMember) {
	sort.Slice(staff, func(i, j int) bool {
		return staff[i].ID.Hex() < staff[j].ID.Hex()
	})
}
