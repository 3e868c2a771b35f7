// internal/app/store/commassign/commassignstore.go
package commassignstore

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

// Collection is the communication_assignments collection name. A partial
// unique index on member_id where is_current is true keeps at most one
// current row per member.
const Collection = "communication_assignments"

// Store provides access to communication assignments.
type Store struct {
	c *mongo.Collection
}

// New creates a communication assignment store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.CommunicationAssignment, error) {
	var a models.CommunicationAssignment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.CommunicationAssignment{}, storeutil.Err(err, "communication assignment "+id.Hex())
	}
	return a, nil
}

func (s *Store) GetCurrentForMember(ctx context.Context, memberID primitive.ObjectID) (models.CommunicationAssignment, error) {
	var a models.CommunicationAssignment
	if err := s.c.FindOne(ctx, bson.M{"member_id": memberID, "is_current": true}).Decode(&a); err != nil {
		return models.CommunicationAssignment{}, storeutil.Err(err, "current communication assignment for member "+memberID.Hex())
	}
	return a, nil
}

func (s *Store) CountCurrent(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"is_current": true})
}

// CountByStatus counts current rows per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_current": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

func (s *Store) ListCurrentForStaff(ctx context.Context, committeeMemberID primitive.ObjectID) ([]models.CommunicationAssignment, error) {
	return s.find(ctx, bson.M{"committee_member_id": committeeMemberID, "is_current": true},
		bson.D{{Key: "assigned_date", Value: 1}, {Key: "_id", Value: 1}})
}

// ListStale returns current, pending, unclaimed rows assigned at or before
// cutoff, oldest first.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]models.CommunicationAssignment, error) {
	return s.find(ctx, bson.M{
		"is_current":    true,
		"status":        models.CommStatusPending,
		"is_claimed":    bson.M{"$ne": true},
		"assigned_date": bson.M{"$lte": cutoff},
	}, bson.D{{Key: "assigned_date", Value: 1}, {Key: "_id", Value: 1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.CommunicationAssignment, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CommunicationAssignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountPendingByStaff(ctx context.Context) (map[primitive.ObjectID]int, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_current": true, "status": models.CommStatusPending}}},
		{{Key: "$group", Value: bson.M{"_id": "$committee_member_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[primitive.ObjectID]int{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}

func (s *Store) Insert(ctx context.Context, a models.CommunicationAssignment) (models.CommunicationAssignment, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.CommunicationAssignment{}, storeutil.Err(err, "communication assignment for member "+a.MemberID.Hex())
	}
	return a, nil
}

func (s *Store) InsertMany(ctx context.Context, rows []models.CommunicationAssignment) (int, error) {
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
	return storeutil.Inserted(len(rows), err, "communication assignments")
}

// openFilter matches a row that is still current and pending.
func openFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "is_current": true, "status": models.CommStatusPending}
}

func (s *Store) MarkSuccessful(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.set(ctx, openFilter(id), bson.M{"status": models.CommStatusSuccessful, "last_contact_attempt": at}, id)
}

func (s *Store) TouchContact(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.set(ctx, openFilter(id), bson.M{"last_contact_attempt": at}, id)
}

// Supersede only matches a row that is still current, pending and
// unclaimed, so a transfer cannot race a contact, a claim or another
// transfer of the same row.
func (s *Store) Supersede(ctx context.Context, id primitive.ObjectID) error {
	filter := openFilter(id)
	filter["is_claimed"] = bson.M{"$ne": true}
	return s.set(ctx, filter, bson.M{"status": models.CommStatusTransferred, "is_current": false}, id)
}

func (s *Store) Reinstate(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, bson.M{"_id": id}, bson.M{"status": models.CommStatusPending, "is_current": true}, id)
}

func (s *Store) SetClaim(ctx context.Context, id primitive.ObjectID, claimed bool, at *time.Time) error {
	if claimed {
		return s.set(ctx, bson.M{"_id": id}, bson.M{"is_claimed": true, "claimed_at": at}, id)
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_claimed": false}, "$unset": bson.M{"claimed_at": ""}})
	if err != nil {
		return storeutil.Err(err, "communication assignment "+id.Hex())
	}
	return storeutil.Matched(res, "communication assignment "+id.Hex())
}

func (s *Store) set(ctx context.Context, filter, set bson.M, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return storeutil.Err(err, "communication assignment "+id.Hex())
	}
	return storeutil.Matched(res, "communication assignment "+id.Hex())
}

var _ outreach.CommunicationStore = (*Store)(nil)
