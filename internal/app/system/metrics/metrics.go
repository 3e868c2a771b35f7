// Package metrics holds the Prometheus counters for the outreach engines and
// the scheduler.
//
// A nil *Outreach, or one that was never registered, is valid; every method
// becomes a no-op. Engines therefore take metrics as an optional dependency.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prayer assignment sources.
const (
	SourceGenerate = "generate"
	SourceRotate   = "rotate"
	SourceNew      = "new_member"
	SourceClaim    = "claim"
)

// Transfer skip causes.
const (
	SkipNoAlternative = "no_alternative"
	SkipStale         = "stale"
	SkipOutOfRotation = "out_of_rotation"
	SkipFailed        = "failed"
)

// Job results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Outreach is the set of outreach metrics.
type Outreach struct {
	prayerCreated *prometheus.CounterVec
	transfers     *prometheus.CounterVec
	skips         *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec

	registerOnce sync.Once
}

// New returns unregistered metrics.
func New() *Outreach {
	return &Outreach{}
}

// Register registers the metrics with registry. A nil registry is a no-op.
// Later calls after the first registration are no-ops.
func (m *Outreach) Register(registry prometheus.Registerer) {
	if m == nil || registry == nil {
		return
	}
	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.prayerCreated = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapterhub_prayer_assignments_created_total",
			Help: "Prayer assignments created, by source",
		}, []string{"source"})

		m.transfers = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapterhub_communication_transfers_total",
			Help: "Communication assignments transferred, by reason",
		}, []string{"reason"})

		m.skips = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapterhub_transfer_skips_total",
			Help: "Eligible communication assignments that were not transferred, by cause",
		}, []string{"cause"})

		m.jobRuns = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapterhub_job_runs_total",
			Help: "Scheduled job runs, by job and result",
		}, []string{"job", "result"})

		m.jobDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chapterhub_job_duration_seconds",
			Help:    "Scheduled job run time",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"})
	})
}

// PrayerCreated adds n to the prayer assignments counter for source.
func (m *Outreach) PrayerCreated(source string, n int) {
	if m == nil || m.prayerCreated == nil || n <= 0 {
		return
	}
	m.prayerCreated.WithLabelValues(source).Add(float64(n))
}

// Transferred counts one transfer.
func (m *Outreach) Transferred(reason string) {
	if m == nil || m.transfers == nil {
		return
	}
	m.transfers.WithLabelValues(reason).Inc()
}

// TransferSkipped counts one skipped transfer.
func (m *Outreach) TransferSkipped(cause string) {
	if m == nil || m.skips == nil {
		return
	}
	m.skips.WithLabelValues(cause).Inc()
}

// JobRun records one scheduled job run.
func (m *Outreach) JobRun(job, result string, took time.Duration) {
	if m == nil || m.jobRuns == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(took.Seconds())
}
