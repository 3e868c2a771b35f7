// internal/app/store/commlogs/commlogstore.go
package commlogstore

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

// Collection is the communication_logs collection name.
const Collection = "communication_logs"

// Store provides access to communication logs. Rows are append-only apart
// from author corrections through UpdateDetails.
type Store struct {
	c *mongo.Collection
}

// New creates a communication log store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Append(ctx context.Context, l models.CommunicationLog) (models.CommunicationLog, error) {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.CommunicationLog{}, storeutil.Err(err, "communication log")
	}
	return l, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.CommunicationLog, error) {
	var l models.CommunicationLog
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return models.CommunicationLog{}, storeutil.Err(err, "communication log "+id.Hex())
	}
	return l, nil
}

func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, method, notes string, at time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"method":     method,
		"notes":      notes,
		"updated_at": at,
	}})
	if err != nil {
		return storeutil.Err(err, "communication log "+id.Hex())
	}
	return storeutil.Matched(res, "communication log "+id.Hex())
}

// ListForAssignment returns the logs of one assignment, oldest first.
func (s *Store) ListForAssignment(ctx context.Context, assignmentID primitive.ObjectID) ([]models.CommunicationLog, error) {
	return s.find(ctx, bson.M{"assignment_id": assignmentID})
}

// ListForMember returns every log for a member across all assignments.
func (s *Store) ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]models.CommunicationLog, error) {
	return s.find(ctx, bson.M{"member_id": memberID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.CommunicationLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "contacted_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CommunicationLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ outreach.LogStore = (*Store)(nil)
