// internal/app/store/prayerassign/prayerassignstore.go
package prayerassignstore

import (
	"context"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/store/storeutil"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the prayer_assignments collection name. A unique index on
// (member_id, period_start) keeps one row per member per month.
const Collection = "prayer_assignments"

// Store provides access to prayer assignments.
type Store struct {
	c *mongo.Collection
}

// New creates a prayer assignment store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PrayerAssignment, error) {
	var a models.PrayerAssignment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.PrayerAssignment{}, storeutil.Err(err, "prayer assignment "+id.Hex())
	}
	return a, nil
}

func (s *Store) GetForMember(ctx context.Context, memberID primitive.ObjectID, periodStart time.Time) (models.PrayerAssignment, error) {
	var a models.PrayerAssignment
	err := s.c.FindOne(ctx, bson.M{"member_id": memberID, "period_start": periodStart}).Decode(&a)
	if err != nil {
		return models.PrayerAssignment{}, storeutil.Err(err, "prayer assignment for member "+memberID.Hex())
	}
	return a, nil
}

func (s *Store) CountForPeriod(ctx context.Context, periodStart time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"period_start": periodStart})
}

func (s *Store) ListForPeriod(ctx context.Context, periodStart time.Time) ([]models.PrayerAssignment, error) {
	return s.find(ctx, bson.M{"period_start": periodStart})
}

func (s *Store) ListForStaff(ctx context.Context, committeeMemberID primitive.ObjectID, periodStart time.Time) ([]models.PrayerAssignment, error) {
	return s.find(ctx, bson.M{"committee_member_id": committeeMemberID, "period_start": periodStart})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.PrayerAssignment, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.PrayerAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, a models.PrayerAssignment) (models.PrayerAssignment, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.PrayerAssignment{}, storeutil.Err(err, "prayer assignment for member "+a.MemberID.Hex())
	}
	return a, nil
}

// InsertMany inserts rows unordered so one duplicate does not stop the
// rest.
func (s *Store) InsertMany(ctx context.Context, rows []models.PrayerAssignment) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(rows))
	for i := range rows {
		if rows[i].ID.IsZero() {
			rows[i].ID = primitive.NewObjectID()
		}
		docs[i] = rows[i]
	}
	_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return storeutil.Inserted(len(rows), err, "prayer assignments")
}

func (s *Store) SetClaim(ctx context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error {
	update := bson.M{"$set": bson.M{"is_claimed": true, "claimed_at": at}}
	if !claimed {
		update = bson.M{"$set": bson.M{"is_claimed": false}, "$unset": bson.M{"claimed_at": ""}}
	}
	res, err := s.c.UpdateByID(ctx, id, update)
	if err != nil {
		return storeutil.Err(err, "prayer assignment "+id.Hex())
	}
	return storeutil.Matched(res, "prayer assignment "+id.Hex())
}

func (s *Store) Reassign(ctx context.Context, id, committeeMemberID primitive.ObjectID, claimedAt time.Time) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"committee_member_id": committeeMemberID,
		"is_claimed":          true,
		"claimed_at":          claimedAt,
	}})
	if err != nil {
		return storeutil.Err(err, "prayer assignment "+id.Hex())
	}
	return storeutil.Matched(res, "prayer assignment "+id.Hex())
}

var _ outreach.PrayerStore = (*Store)(nil)
