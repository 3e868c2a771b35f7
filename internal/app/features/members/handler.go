// internal/app/features/members/handler.go
package members

import (
	"context"

	memberstore "github.com/dalemusser/chapterhub/internal/app/store/members"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// PrayerAssigner places a newly added member into the active prayer month.
type PrayerAssigner interface {
	ActivePeriod(ctx context.Context) (models.Period, error)
	AssignNewMember(ctx context.Context, memberID primitive.ObjectID, period models.Period) (models.PrayerAssignment, error)
}

// CommunicationAssigner gives a newly added member a communication owner.
type CommunicationAssigner interface {
	AssignNewMember(ctx context.Context, memberID primitive.ObjectID) (models.CommunicationAssignment, error)
}

// Handler is the feature-level handler for the member directory.
// It holds the DB handle, stores, and logger provided by WAFFLE DBDeps / Startup.
// Prayer and Communication are optional; without them new members are
// stored but not assigned.
type Handler struct {
	DB            *mongo.Database
	Log           *zap.Logger
	Members       *memberstore.Store
	Prayer        PrayerAssigner
	Communication CommunicationAssigner
}

func NewHandler(db *mongo.Database, prayer PrayerAssigner, comm CommunicationAssigner, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Log:           logger,
		Members:       memberstore.New(db),
		Prayer:        prayer,
		Communication: comm,
	}
}
