// Package allocator distributes members evenly across same-gender staff.
//
// Both prayer and communication generation use it. Within each gender the
// member list is shuffled (or, in preview mode, sorted by name) and dealt out
// round-robin: the i-th member goes to staff[i mod K] with bucket
// (i mod K)+1.
package allocator

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode selects how members are ordered before round-robin.
type Mode int

const (
	// Shuffle randomizes member order (Fisher–Yates). Staff are ordered by
	// ID so bucket numbers line up with rotation.
	Shuffle Mode = iota
	// Preview sorts members and staff by last name so repeated previews of
	// the same inputs agree.
	Preview
)

// Slot is one member's allocation.
type Slot struct {
	MemberID          primitive.ObjectID
	CommitteeMemberID primitive.ObjectID
	Gender            models.Gender
	Bucket            int
}

// Options configures Allocate.
type Options struct {
	Mode Mode
	// Rand is used by Shuffle. Nil uses the global source.
	Rand *rand.Rand
}

// Allocate assigns every member to a staff member of the same gender.
//
// If any member's gender has no staff, the whole allocation fails with
// outreach.ErrNoEligibleStaff; no partial result is returned.
func Allocate(members []models.Member, staff []models.CommitteeMember, opts Options) ([]Slot, error) {
	membersBy := make(map[models.Gender][]models.Member)
	for _, m := range members {
		membersBy[m.Gender] = append(membersBy[m.Gender], m)
	}
	staffBy := make(map[models.Gender][]models.CommitteeMember)
	for _, cm := range staff {
		staffBy[cm.Gender] = append(staffBy[cm.Gender], cm)
	}

	genders := make([]models.Gender, 0, len(membersBy))
	for g := range membersBy {
		genders = append(genders, g)
	}
	sort.Slice(genders, func(i, j int) bool { return genders[i] < genders[j] })

	for _, g := range genders {
		if len(staffBy[g]) == 0 {
			return nil, fmt.Errorf("%w for %d %s member(s)", outreach.ErrNoEligibleStaff, len(membersBy[g]), genderLabel(g))
		}
	}

	out := make([]Slot, 0, len(members))
	for _, g := range genders {
		ms := append([]models.Member(nil), membersBy[g]...)
		ss := append([]models.CommitteeMember(nil), staffBy[g]...)

		switch opts.Mode {
		case Preview:
			sortMembersByName(ms)
			sortStaffByName(ss)
		default:
			shuffle(ms, opts.Rand)
			staffpolicy.SortByID(ss)
		}

		k := len(ss)
		for i, m := range ms {
			out = append(out, Slot{
				MemberID:          m.ID,
				CommitteeMemberID: ss[i%k].ID,
				Gender:            g,
				Bucket:            i%k + 1,
			})
		}
	}
	return out, nil
}

// ByMember indexes slots by member ID.
func ByMember(slots []Slot) map[primitive.ObjectID]primitive.ObjectID {
	out := make(map[primitive.ObjectID]primitive.ObjectID, len(slots))
	for _, s := range slots {
		out[s.MemberID] = s.CommitteeMemberID
	}
	return out
}

// LoadByStaff counts slots per committee member.
func LoadByStaff(slots []Slot) map[primitive.ObjectID]int {
	out := make(map[primitive.ObjectID]int)
	for _, s := range slots {
		out[s.CommitteeMemberID]++
	}
	return out
}

func shuffle(ms []models.Member, r *rand.Rand) {
	for i := len(ms) - 1; i > 0; i-- {
		var j int
		if r != nil {
			j = r.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		ms[i], ms[j] = ms[j], ms[i]
	}
}

func sortMembersByName(ms []models.Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
			return c < 0
		}
		return a.ID.Hex() < b.ID.Hex()
	})
}

func sortStaffByName(ss []models.CommitteeMember) {
	sort.SliceStable(ss, func(i, j int) bool {
		a, b := ss[i], ss[j]
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
			return c < 0
		}
		return a.ID.Hex() < b.ID.Hex()
	})
}

func genderLabel(g models.Gender) string {
	if g == "" {
		return "unspecified-gender"
	}
	return string(g)
}
