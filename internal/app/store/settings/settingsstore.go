// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the app_settings collection name. Each document is keyed
// by the setting name.
const Collection = "app_settings"

// Store provides access to the app_settings collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Load returns every stored setting. Missing keys are simply absent; the
// caller applies defaults.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]string{}
	for cur.Next(ctx) {
		var st models.AppSetting
		if err := cur.Decode(&st); err != nil {
			return nil, err
		}
		out[st.Key] = st.Value
	}
	return out, cur.Err()
}

// Get returns one setting and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (models.AppSetting, bool, error) {
	var st models.AppSetting
	err := s.c.FindOne(ctx, bson.M{"_id": key}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return models.AppSetting{}, false, nil
	}
	if err != nil {
		return models.AppSetting{}, false, err
	}
	return st, true, nil
}

// Set stores value under key.
// Uses upsert so it works whether the key exists or not.
func (s *Store) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": bson.M{
		"value":      value,
		"updated_at": time.Now().UTC(),
	}}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	return err
}

var _ outreach.SettingsStore = (*Store)(nil)
