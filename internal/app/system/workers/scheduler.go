// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/tasks"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler runs each job on its own ticker until Stop is called.
type Scheduler struct {
	jobs       []tasks.Job
	log        *zap.Logger
	metrics    *metrics.Outreach
	timeout    time.Duration
	runOnStart bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
}

// Options configure a Scheduler. Timeout bounds each run; RunOnStart runs
// every job once immediately instead of waiting for the first tick.
type Options struct {
	Timeout    time.Duration
	RunOnStart bool
	Metrics    *metrics.Outreach
}

// NewScheduler creates a scheduler for jobs.
func NewScheduler(jobs []tasks.Job, logger *zap.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Scheduler{
		jobs:       jobs,
		log:        logger,
		metrics:    opts.Metrics,
		timeout:    opts.Timeout,
		runOnStart: opts.RunOnStart,
		stopCh:     make(chan struct{}),
	}
}

// Start begins one loop per job.
func (s *Scheduler) Start() {
	s.running.Store(true)
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.log.Warn("job not scheduled", zap.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(j)
		s.log.Info("job scheduled",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every loop to stop and waits for in-flight runs to finish.
// It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		close(s.stopCh)
		s.wg.Wait()
		s.log.Info("scheduler stopped")
	})
}

// Running reports whether Start has been called and Stop has not.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(j tasks.Job) {
	defer s.wg.Done()

	if s.runOnStart {
		s.RunOnce(j)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunOnce(j)
		}
	}
}

// RunOnce runs j a single time with a run id, a deadline and panic
// recovery, and returns the run's error.
func (s *Scheduler) RunOnce(j tasks.Job) (err error) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("job", j.Name), zap.String("run_id", runID))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// Stop cancels in-flight runs.
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
		took := time.Since(start)
		switch {
		case errors.Is(err, tasks.ErrNotDue):
			s.metrics.JobRun(j.Name, metrics.ResultSkipped, took)
			log.Debug("job not due")
		case err != nil:
			s.metrics.JobRun(j.Name, metrics.ResultError, took)
			log.Error("job failed", zap.Duration("took", took), zap.Error(err))
		default:
			s.metrics.JobRun(j.Name, metrics.ResultOK, took)
			log.Info("job finished", zap.Duration("took", took))
		}
	}()

	log.Debug("job started")
	return j.Run(ctx)
}
