package metricsstore

import (
	"context"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the chapter summary.
type Counts struct {
	ActiveMembers      int64 `json:"active_members"`
	EligibleStaff      int64 `json:"eligible_staff"`
	PrayerThisMonth    int64 `json:"prayer_this_month"`
	PrayerClaimed      int64 `json:"prayer_claimed"`
	CommPending        int64 `json:"communication_pending"`
	CommSuccessful     int64 `json:"communication_successful"`
	CommClaimed        int64 `json:"communication_claimed"`
	TransfersThisMonth int64 `json:"transfers_this_month"`
}

// FetchSummaryCounts returns the high-level counts for the month containing
// now. Intentionally tolerant: on error it returns 0 for that counter.
func FetchSummaryCounts(ctx context.Context, db *mongo.Database, now time.Time) Counts {
	var out Counts
	period := models.MonthOf(now)

	count := func(coll string, filter bson.M, dst *int64) {
		if n, err := db.Collection(coll).CountDocuments(ctx, filter); err == nil {
			*dst = n
		}
	}

	count("members", bson.M{"active": true, "graduated": bson.M{"$ne": true}}, &out.ActiveMembers)
	count("committee_members", staffpolicy.Filter(""), &out.EligibleStaff)

	count("prayer_assignments", bson.M{"period_start": period.Start}, &out.PrayerThisMonth)
	count("prayer_assignments", bson.M{"period_start": period.Start, "is_claimed": true}, &out.PrayerClaimed)

	count("communication_assignments", bson.M{"is_current": true, "status": models.CommStatusPending}, &out.CommPending)
	count("communication_assignments", bson.M{"is_current": true, "status": models.CommStatusSuccessful}, &out.CommSuccessful)
	count("communication_assignments", bson.M{"is_current": true, "is_claimed": true}, &out.CommClaimed)

	count("transfer_history", bson.M{"transferred_at": bson.M{"$gte": period.Start, "$lt": period.Next().Start}}, &out.TransfersThisMonth)

	return out
}
