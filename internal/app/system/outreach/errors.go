// internal/app/system/outreach/errors.go
package outreach

import "errors"

// Precondition violations. These are returned to callers verbatim and are
// never retried.
var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyClaimed  = errors.New("already claimed")
	ErrNotClaimed      = errors.New("not claimed")
	ErrGenderMismatch  = errors.New("gender mismatch")
	ErrNotOwner        = errors.New("not the owner of this assignment")
	ErrNoEligibleStaff = errors.New("no eligible committee members")
	ErrNotEligible     = errors.New("assignment is not eligible")
	ErrInactiveMember  = errors.New("member is inactive or graduated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotRotated      = errors.New("month has no prayer assignments yet")
)

// Code returns a short machine-readable code for err, or "" when err is not
// one of the precondition errors above.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrNotClaimed):
		return "not_claimed"
	case errors.Is(err, ErrGenderMismatch):
		return "gender_mismatch"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrNoEligibleStaff):
		return "no_eligible_staff"
	case errors.Is(err, ErrNotEligible):
		return "not_eligible"
	case errors.Is(err, ErrInactiveMember):
		return "inactive_member"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotRotated):
		return "not_rotated"
	}
	return ""
}
