package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/chapterhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts directory records straight into a test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for db.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateMember inserts an active member.
func (f *Fixtures) CreateMember(ctx context.Context, first, last string, g models.Gender) models.Member {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.Member{
		ID:         primitive.NewObjectID(),
		FirstName:  first,
		LastName:   last,
		LastNameCI: text.Fold(last),
		Gender:     g,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateStaff inserts an active committee member with role.
func (f *Fixtures) CreateStaff(ctx context.Context, first, last string, g models.Gender, role string) models.CommitteeMember {
	f.t.Helper()
	now := time.Now().UTC()
	cm := models.CommitteeMember{
		ID:          primitive.NewObjectID(),
		FirstName:   first,
		LastName:    last,
		LastNameCI:  text.Fold(last),
		Email:       text.Fold(first) + "." + text.Fold(last) + "@example.org",
		Gender:      g,
		Role:        role,
		Status:      models.StaffStatusActive,
		Active:      true,
		InvitedAt:   now,
		ActivatedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("committee_members").InsertOne(ctx, cm); err != nil {
		f.t.Fatalf("failed to create test committee member: %v", err)
	}
	return cm
}
