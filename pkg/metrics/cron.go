package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector the storefront binaries register.
const Namespace = "storefront"

// Cron run results and lock outcomes.
const (
	CronResultOK     = "ok"
	CronResultFailed = "failed"

	CronLockAcquired = "acquired"
	CronLockHeld     = "held_elsewhere"
	CronLockError    = "error"
)

// CronMetrics covers the cron worker: one series per job for runs and
// durations, plus how often this replica won the cycle lock.
type CronMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	lock        *prometheus.CounterVec
}

func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "cron",
		Name:      "job_runs_total",
		Help:      "Cron job runs by result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "cron",
		Name:      "job_duration_seconds",
		Help:      "Cron job run time.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"job"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "cron",
		Name:      "job_last_success_timestamp_seconds",
		Help:      "Unix time of the last successful run of each job.",
	}, []string{"job"})
	lock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "cron",
		Name:      "lock_attempts_total",
		Help:      "Cycle lock attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(runs, duration, lastSuccess, lock)
	return &CronMetrics{runs: runs, duration: duration, lastSuccess: lastSuccess, lock: lock}
}

// ObserveRun records one finished job run. A nil err counts as ok and moves
// the job's last-success timestamp to finishedAt.
func (c *CronMetrics) ObserveRun(job string, took time.Duration, finishedAt time.Time, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, CronResultFailed).Inc()
		return
	}
	c.runs.WithLabelValues(job, CronResultOK).Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(finishedAt.Unix()))
}

func (c *CronMetrics) IncLock(outcome string) {
	if c == nil || c.lock == nil {
		return
	}
	c.lock.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
