// Package storeutil translates MongoDB driver errors into the outreach
// error vocabulary and holds small helpers shared by the stores.
package storeutil

import (
	"errors"
	"fmt"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Err maps driver errors for what (e.g. "member 65f…") to outreach errors:
// no documents becomes ErrNotFound and duplicate keys become
// ErrAlreadyExists. Other errors are wrapped unchanged.
func Err(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, outreach.ErrNotFound)
	case wafflemongo.IsDup(err):
		return fmt.Errorf("%s: %w", what, outreach.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Matched returns ErrNotFound for what when an update matched nothing.
func Matched(res *mongo.UpdateResult, what string) error {
	if res == nil || res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, outreach.ErrNotFound)
	}
	return nil
}

// Inserted reports how many documents an unordered InsertMany stored out
// of total, and an error describing the rest.
func Inserted(total int, err error, what string) (int, error) {
	if err == nil {
		return total, nil
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && bwe.WriteConcernError == nil && len(bwe.WriteErrors) > 0 {
		failed := len(bwe.WriteErrors)
		first := bwe.WriteErrors[0]
		cause := error(first)
		if first.Code == 11000 {
			cause = fmt.Errorf("%s: %w", first.Message, outreach.ErrAlreadyExists)
		}
		return total - failed, fmt.Errorf("%d of %d %s not inserted: %w", failed, total, what, cause)
	}
	return 0, fmt.Errorf("insert %s: %w", what, err)
}
