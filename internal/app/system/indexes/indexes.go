// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Problems are aggregated so every failing collection is visible and startup
can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"members", ensureMembers},
		{"committee_members", ensureCommitteeMembers},
		{"prayer_assignments", ensurePrayerAssignments},
		{"communication_assignments", ensureCommunicationAssignments},
		{"communication_logs", ensureCommunicationLogs},
		{"transfer_history", ensureTransferHistory},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// partialSig renders a partial filter so desired and existing filters
// compare equal regardless of their Go types.
func partialSig(filter interface{}) string {
	if filter == nil {
		return ""
	}
	raw, err := bson.MarshalExtJSON(filter, true, false)
	if err != nil {
		return fmt.Sprintf("%v", filter)
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(raw, true, &d); err != nil {
		return string(raw)
	}
	if len(d) == 0 {
		return ""
	}
	return keySig(d)
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

type desiredIndex struct {
	model   mongo.IndexModel
	name    string
	unique  *bool
	sig     string
	partial string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique
		d.partial = partialSig(m.Options.PartialFilterExpression)
	}
	return d
}

func (d desiredIndex) matches(ex existingIndex) bool {
	return sameBoolPtr(d.unique, ex.Unique) && d.partial == partialSig(ex.Partial)
}

func (d desiredIndex) isUnique() bool {
	return d.unique != nil && *d.unique
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops ex and builds d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), d.name, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if isDuplicateKeyErr(err) && d.isUnique() {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), d.name, d.sig)
		}
		return fmt.Errorf("%s(%s): %v", coll.Name(), d.name, err)
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.isUnique()))
		log.Info("ensuring index")

		existing := listExisting(ctx, coll)

		if ex, ok := existing[d.sig]; ok {
			switch {
			case d.matches(ex) && (d.name == "" || ex.Name == d.name):
				log.Info("reusing existing index", zap.String("existing", ex.Name),
					zap.String("took", time.Since(start).String()))
			case d.matches(ex):
				if err := recreate(ctx, coll, ex, d); err != nil {
					log.Warn("rename index failed", zap.Error(err))
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index renamed", zap.String("from", ex.Name),
					zap.String("took", time.Since(start).String()))
			default:
				// Options changed (e.g. upgrading to unique or partial).
				if err := recreate(ctx, coll, ex, d); err != nil {
					log.Warn("recreate index failed", zap.Error(err))
					errs = append(errs, err.Error())
					continue
				}
				log.Info("index dropped and recreated",
					zap.String("took", time.Since(start).String()))
			}
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
				if d.matches(ex) {
					log.Info("reusing existing index (post-conflict)", zap.String("existing", ex.Name))
					continue
				}
				err = recreate(ctx, coll, ex, d)
			}
		}
		if err != nil {
			log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			continue
		}
		log.Info("index ensured", zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("members"), []mongo.IndexModel{
		// Allocation reads: active, not graduated, by gender, in ID order.
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "gender", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_members_active_gender_id"),
		},
		// Directory lists and last-name prefix search.
		{
			Keys: bson.D{
				{Key: "last_name_ci", Value: 1},
				{Key: "first_name", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_members_lastnameci_first_id"),
		},
	})
}

func ensureCommitteeMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("committee_members"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_committee_email"),
		},
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "role", Value: 1},
				{Key: "gender", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_committee_active_role_gender_id"),
		},
		// Session sign-in resolves the linked identity.
		{
			Keys: bson.D{{Key: "auth_subject", Value: 1}},
			Options: options.Index().SetName("idx_committee_auth_subject").
				SetPartialFilterExpression(bson.M{"auth_subject": bson.M{"$type": "string"}}),
		},
	})
}

func ensurePrayerAssignments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("prayer_assignments"), []mongo.IndexModel{
		// One prayer row per member per month.
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "period_start", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_prayer_member_period"),
		},
		{
			Keys:    bson.D{{Key: "period_start", Value: 1}, {Key: "committee_member_id", Value: 1}},
			Options: options.Index().SetName("idx_prayer_period_staff"),
		},
	})
}

func ensureCommunicationAssignments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("communication_assignments"), []mongo.IndexModel{
		// At most one current row per member.
		{
			Keys: bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_comm_current_member").
				SetPartialFilterExpression(bson.M{"is_current": true}),
		},
		// Stale scan for auto transfer.
		{
			Keys: bson.D{
				{Key: "is_current", Value: 1},
				{Key: "status", Value: 1},
				{Key: "assigned_date", Value: 1},
			},
			Options: options.Index().SetName("idx_comm_current_status_assigned"),
		},
		{
			Keys:    bson.D{{Key: "committee_member_id", Value: 1}, {Key: "is_current", Value: 1}},
			Options: options.Index().SetName("idx_comm_staff_current"),
		},
	})
}

func ensureCommunicationLogs(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("communication_logs"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assignment_id", Value: 1}, {Key: "contacted_at", Value: 1}},
			Options: options.Index().SetName("idx_logs_assignment_contacted"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}},
			Options: options.Index().SetName("idx_logs_member"),
		},
	})
}

func ensureTransferHistory(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("transfer_history"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "transferred_at", Value: 1}},
			Options: options.Index().SetName("idx_transfers_member_at"),
		},
		{
			Keys: bson.D{{Key: "batch_id", Value: 1}},
			Options: options.Index().SetName("idx_transfers_batch").
				SetPartialFilterExpression(bson.M{"batch_id": bson.M{"$type": "string"}}),
		},
	})
}
