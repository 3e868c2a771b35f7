// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/outreach"
	"github.com/dalemusser/chapterhub/internal/app/system/rotation"
	"github.com/dalemusser/chapterhub/internal/app/system/transfer"
	"github.com/dalemusser/chapterhub/internal/domain/models"
	"go.uber.org/zap"
)

// ErrNotDue is returned by a job run that had nothing to do yet.
var ErrNotDue = errors.New("not due")

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// AutoTransferer is the part of the transfer engine the auto-transfer job
// calls.
type AutoTransferer interface {
	ProcessAutoTransfers(ctx context.Context, thresholdDays *int) (transfer.AutoResult, error)
}

// Rotator is the part of the rotation engine the prayer-rotation job calls.
type Rotator interface {
	RotateBuckets(ctx context.Context, target *models.Period) (rotation.RotateResult, error)
}

// AutoTransferJob creates the daily job that moves unresponsive
// communication assignments. The threshold is read from settings on every
// run.
func AutoTransferJob(engine AutoTransferer, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "auto-transfer",
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := engine.ProcessAutoTransfers(ctx, nil)
			if err != nil {
				return err
			}
			if res.Transferred > 0 || res.Failed > 0 {
				logger.Info("auto-transfer job",
					zap.String("batch_id", res.BatchID),
					zap.Int("transferred", res.Transferred),
					zap.Int("skipped", res.Skipped),
					zap.Int("failed", res.Failed))
			}
			return nil
		},
	}
}

// PrayerRotationJob creates the job that rotates prayer buckets once the
// configured day of month is reached. It is checked on every tick and
// returns ErrNotDue until then; RotateBuckets itself is idempotent.
func PrayerRotationJob(engine Rotator, settings outreach.SettingsStore, now func() time.Time, logger *zap.Logger, interval time.Duration) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     "prayer-rotation",
		Interval: interval,
		Run: func(ctx context.Context) error {
			s, err := outreach.LoadSettings(ctx, settings)
			if err != nil {
				return err
			}
			t := now()
			if !rotation.Due(s, t) {
				return ErrNotDue
			}
			p := models.MonthOf(t)
			res, err := engine.RotateBuckets(ctx, &p)
			if err != nil {
				return err
			}
			logger.Info("prayer-rotation job",
				zap.String("period", res.Period.Key()),
				zap.Int("created", res.Created),
				zap.Bool("skipped", res.Skipped),
				zap.String("reason", res.Reason))
			return nil
		},
	}
}
