// internal/app/store/transfers/transferstore.go
package transferstore

import (
	"context"

	"github.com/dalemusser/chapterhub/internal/app/store/storeutil"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the transfer_history collection name.
const Collection = "transfer_history"

// Store is the append-only transfer ledger.
type Store struct {
	c *mongo.Collection
}

// New creates a transfer ledger store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Append(ctx context.Context, r models.TransferRecord) (models.TransferRecord, error) {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.TransferRecord{}, storeutil.Err(err, "transfer record for member "+r.MemberID.Hex())
	}
	return r, nil
}

// ListForMember returns the ledger for one member, oldest first.
func (s *Store) ListForMember(ctx context.Context, memberID primitive.ObjectID) ([]models.TransferRecord, error) {
	return s.find(ctx, bson.M{"member_id": memberID})
}

// ListBatch returns the rows written by one auto-transfer run.
func (s *Store) ListBatch(ctx context.Context, batchID string) ([]models.TransferRecord, error) {
	return s.find(ctx, bson.M{"batch_id": batchID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.TransferRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "transferred_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TransferRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ outreach.TransferStore = (*Store)(nil)
