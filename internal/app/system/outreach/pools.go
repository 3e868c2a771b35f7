// internal/app/system/outreach/pools.go
package outreach

import (
	"time"

	"github.com/dalemusser/chapterhub/internal/domain/models"
)

// CommunicationPool drops members who also serve on the committee; they are
// not contacted by their peers.
func CommunicationPool(members []models.Member) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.IsCommitteeMember {
			continue
		}
		out = append(out, m)
	}
	return out
}

// DaysSince counts whole days elapsed from since to now. Partial days do not
// count, so an assignment made 29d23h ago is 29 days old.
func DaysSince(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// StaleCutoff returns the latest assigned date that is at least
// thresholdDays old at now.
func StaleCutoff(now time.Time, thresholdDays int) time.Time {
	return now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)
}
