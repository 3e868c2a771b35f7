// internal/app/store/committee/committeestore.go
package committeestore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/policy/staffpolicy"
	"github.com/dalemusser/chapterhub/internal/app/store/storeutil"
	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the committee_members collection name.
const Collection = "committee_members"

// Store provides access to committee members.
type Store struct {
	c *mongo.Collection
}

// New creates a committee store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.CommitteeMember, error) {
	var cm models.CommitteeMember
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cm); err != nil {
		return models.CommitteeMember{}, storeutil.Err(err, "committee member "+id.Hex())
	}
	return cm, nil
}

// GetByEmail looks a committee member up by (case-folded) email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.CommitteeMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var cm models.CommitteeMember
	if err := s.c.FindOne(ctx, bson.M{"email": email}).Decode(&cm); err != nil {
		return models.CommitteeMember{}, storeutil.Err(err, "committee member "+email)
	}
	return cm, nil
}

// ListEligible returns the staff who take assignments, in ID order. The
// filter comes from staffpolicy so it matches staffpolicy.IsEligible.
func (s *Store) ListEligible(ctx context.Context, gender models.Gender) ([]models.CommitteeMember, error) {
	return s.find(ctx, staffpolicy.Filter(gender), bson.D{{Key: "_id", Value: 1}})
}

// List returns every committee member sorted by name.
func (s *Store) List(ctx context.Context) ([]models.CommitteeMember, error) {
	return s.find(ctx, bson.M{}, bson.D{
		{Key: "last_name_ci", Value: 1},
		{Key: "first_name", Value: 1},
		{Key: "_id", Value: 1},
	})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.CommitteeMember, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.CommitteeMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invite stores a new committee member in the pending state. They take no
// assignments until activated.
func (s *Store) Invite(ctx context.Context, cm models.CommitteeMember) (models.CommitteeMember, error) {
	now := time.Now().UTC()
	cm.ID = primitive.NewObjectID()
	cm.FirstName = strings.TrimSpace(cm.FirstName)
	cm.LastName = strings.TrimSpace(cm.LastName)
	cm.LastNameCI = text.Fold(cm.LastName)
	cm.Email = strings.ToLower(strings.TrimSpace(cm.Email))
	if cm.Role == "" {
		cm.Role = models.RoleCommitteeMember
	}
	cm.Status = models.StaffStatusPending
	cm.Active = false
	cm.InvitedAt = now
	cm.ActivatedAt = nil
	cm.CreatedAt = now
	cm.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, cm); err != nil {
		return models.CommitteeMember{}, storeutil.Err(err, "committee member "+cm.Email)
	}
	return cm, nil
}

// Activate links an identity and makes the member active.
func (s *Store) Activate(ctx context.Context, id primitive.ObjectID, authSubject string) (models.CommitteeMember, error) {
	now := time.Now().UTC()
	set := bson.M{
		"status":       models.StaffStatusActive,
		"active":       true,
		"activated_at": now,
		"updated_at":   now,
	}
	if authSubject != "" {
		set["auth_subject"] = authSubject
	}
	return s.update(ctx, id, set)
}

// Deactivate disables the account. Existing assignments stay; rotation
// and transfers stop routing to this member.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID) (models.CommitteeMember, error) {
	return s.update(ctx, id, bson.M{
		"status":     models.StaffStatusDisabled,
		"active":     false,
		"updated_at": time.Now().UTC(),
	})
}

// Update holds the editable fields of a committee member.
type Update struct {
	FirstName *string
	LastName  *string
	Gender    *models.Gender
	Role      *string
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.CommitteeMember, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.FirstName != nil {
		set["first_name"] = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		last := strings.TrimSpace(*u.LastName)
		set["last_name"] = last
		set["last_name_ci"] = text.Fold(last)
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.Role != nil {
		set["role"] = *u.Role
	}
	return s.update(ctx, id, set)
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.CommitteeMember, error) {
	var cm models.CommitteeMember
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&cm)
	if err != nil {
		return models.CommitteeMember{}, storeutil.Err(err, "committee member "+id.Hex())
	}
	return cm, nil
}

// CountEligible returns the number of staff taking assignments.
func (s *Store) CountEligible(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, staffpolicy.Filter(""))
}

var _ outreach.StaffDirectory = (*Store)(nil)
