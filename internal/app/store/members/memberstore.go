// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/store/storeutil"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names owned by or cascaded from the member directory.
const (
	Collection          = "members"
	prayerCollection    = "prayer_assignments"
	commCollection      = "communication_assignments"
	logCollection       = "communication_logs"
	transfersCollection = "transfer_history"
)

// Store provides access to the members collection.
type Store struct {
	db *mongo.Database
	c  *mongo.Collection
}

// New creates a member store.
func New(db *mongo.Database) *Store {
	return &Store{db: db, c: db.Collection(Collection)}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return models.Member{}, storeutil.Err(err, "member "+id.Hex())
	}
	return m, nil
}

// ListActive returns active, non-graduated members in ID order. An empty
// gender means all genders.
func (s *Store) ListActive(ctx context.Context, gender models.Gender) ([]models.Member, error) {
	filter := bson.M{"active": true, "graduated": bson.M{"$ne": true}}
	if gender != "" {
		filter["gender"] = gender
	}
	return s.find(ctx, filter, bson.D{{Key: "_id", Value: 1}})
}

// Filter narrows List.
type Filter struct {
	Gender          models.Gender
	IncludeInactive bool
	Search          string // case-insensitive last-name prefix
}

// List returns members sorted by last name, first name.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Member, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["active"] = true
		filter["graduated"] = bson.M{"$ne": true}
	}
	if f.Gender != "" {
		filter["gender"] = f.Gender
	}
	if q := text.Fold(strings.TrimSpace(f.Search)); q != "" {
		filter["last_name_ci"] = bson.M{"$gte": q, "$lt": q + "\uffff"}
	}
	return s.find(ctx, filter, bson.D{
		{Key: "last_name_ci", Value: 1},
		{Key: "first_name", Value: 1},
		{Key: "_id", Value: 1},
	})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.FirstName = strings.TrimSpace(m.FirstName)
	m.LastName = strings.TrimSpace(m.LastName)
	m.LastNameCI = text.Fold(m.LastName)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, storeutil.Err(err, "member")
	}
	return m, nil
}

// Update holds the editable fields of a member. Nil fields are left alone.
type Update struct {
	FirstName         *string
	LastName          *string
	Email             *string
	Phone             *string
	Gender            *models.Gender
	Active            *bool
	Graduated         *bool
	IsCommitteeMember *bool
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Member, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.FirstName != nil {
		set["first_name"] = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		last := strings.TrimSpace(*u.LastName)
		set["last_name"] = last
		set["last_name_ci"] = text.Fold(last)
	}
	if u.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*u.Email))
	}
	if u.Phone != nil {
		set["phone"] = strings.TrimSpace(*u.Phone)
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}
	if u.Graduated != nil {
		set["graduated"] = *u.Graduated
	}
	if u.IsCommitteeMember != nil {
		set["is_committee_member"] = *u.IsCommitteeMember
	}

	var m models.Member
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		return models.Member{}, storeutil.Err(err, "member "+id.Hex())
	}
	return m, nil
}

// DeleteResult counts the documents removed by Delete.
type DeleteResult struct {
	Members       int64 `json:"members"`
	Prayer        int64 `json:"prayer_assignments"`
	Communication int64 `json:"communication_assignments"`
	Logs          int64 `json:"communication_logs"`
	Transfers     int64 `json:"transfer_history"`
}

// Delete removes a member together with every assignment, log and
// transfer row that references it. Run it inside a transaction to make the
// cascade atomic.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (DeleteResult, error) {
	var out DeleteResult
	byMember := bson.M{"member_id": id}

	steps := []struct {
		coll string
		n    *int64
	}{
		{prayerCollection, &out.Prayer},
		{commCollection, &out.Communication},
		{logCollection, &out.Logs},
		{transfersCollection, &out.Transfers},
	}
	for _, st := range steps {
		res, err := s.db.Collection(st.coll).DeleteMany(ctx, byMember)
		if err != nil {
			return out, storeutil.Err(err, "delete "+st.coll+" for member "+id.Hex())
		}
		*st.n = res.DeletedCount
	}

	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return out, storeutil.Err(err, "member "+id.Hex())
	}
	out.Members = res.DeletedCount
	return out, nil
}

// Count returns the number of members in rotation.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"active": true, "graduated": bson.M{"$ne": true}})
}

var _ outreach.MemberDirectory = (*Store)(nil)
