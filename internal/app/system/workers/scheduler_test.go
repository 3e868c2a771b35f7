package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/chapterhub/internal/app/system/metrics"
	"github.com/dalemusser/chapterhub/internal/app/system/tasks"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestScheduler_RunsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	job := tasks.Job{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	s := NewScheduler([]tasks.Job{job}, zap.NewNop(), Options{RunOnStart: true})
	assert.False(t, s.Running())
	s.Start()
	assert.True(t, s.Running())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop() // idempotent
	assert.False(t, s.Running())

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	var canceled atomic.Bool
	job := tasks.Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			canceled.Store(true)
			return ctx.Err()
		},
	}

	s := NewScheduler([]tasks.Job{job}, zap.NewNop(), Options{RunOnStart: true, Timeout: time.Minute})
	s.Start()
	<-started
	s.Stop()
	assert.True(t, canceled.Load())
}

func TestScheduler_SkipsInvalidJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler([]tasks.Job{{Name: "no-interval", Run: func(context.Context) error { return nil }}}, nil, Options{})
	s.Start()
	s.Stop()
}

func TestRunOnce_RecoversAndRecords(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.Register(reg)
	s := NewScheduler(nil, zap.NewNop(), Options{Metrics: m})

	err := s.RunOnce(tasks.Job{Name: "panics", Run: func(context.Context) error { panic("boom") }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	err = s.RunOnce(tasks.Job{Name: "fails", Run: func(context.Context) error { return errors.New("nope") }})
	require.Error(t, err)

	require.NoError(t, s.RunOnce(tasks.Job{Name: "ok", Run: func(context.Context) error { return nil }}))
	assert.ErrorIs(t, s.RunOnce(tasks.Job{Name: "later", Run: func(context.Context) error { return tasks.ErrNotDue }}), tasks.ErrNotDue)

	n, err := promtest.GatherAndCount(reg, "chapterhub_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
