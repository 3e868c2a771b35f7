// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one.
//
// Standalone servers do not support transactions. On those, Run logs once and
// executes fn directly so development setups keep working; callers that need
// all-or-nothing behavior there supply their own compensation.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions are not available here".
const (
	codeIllegalOperation     = 20
	codeNoReplicationEnabled = 51
	codeOperationNotInTxn    = 263
)

var warnedFallback atomic.Bool

// Run executes fn inside a transaction on db's client. If the server cannot
// run transactions, fn runs without one.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			fallbackWarn(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		fallbackWarn(log, err)
		return fn(ctx)
	}
	return err
}

// For returns a Transactor that runs work through Run.
func For(db *mongo.Database, log *zap.Logger) outreach.Transactor {
	return outreach.TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return Run(ctx, db, log, fn)
	})
}

func fallbackWarn(log *zap.Logger, err error) {
	if log == nil || !warnedFallback.CompareAndSwap(false, true) {
		return
	}
	log.Warn("transactions not supported by this deployment; running writes without a transaction",
		zap.Error(err))
}

// IsNotSupported reports whether err means the deployment cannot run
// multi-document transactions (typically a standalone mongod).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotInTxn:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}
